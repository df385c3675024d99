package lesson

import "time"

type ResourceType string

const ResourcePDF ResourceType = "pdf"
const ResourceAudio ResourceType = "audio"
const ResourceVideo ResourceType = "video"
const ResourceImage ResourceType = "image"
const ResourceLink ResourceType = "link"
const ResourceOther ResourceType = "other"
const ResourceSheetMusic ResourceType = "sheet_music"
const ResourceChordChart ResourceType = "chord_chart"
const ResourceTablature ResourceType = "tablature"
const ResourceLyrics ResourceType = "lyrics"

func (t ResourceType) Valid() bool {
	switch t {
	case ResourcePDF, ResourceAudio, ResourceVideo, ResourceImage, ResourceLink, ResourceOther,
		ResourceSheetMusic, ResourceChordChart, ResourceTablature, ResourceLyrics:
		return true
	}
	return false
}

// IsMusic - ноты, аккорды, табы и тексты несут музыкальные метаданные.
func (t ResourceType) IsMusic() bool {
	switch t {
	case ResourceSheetMusic, ResourceChordChart, ResourceTablature, ResourceLyrics:
		return true
	}
	return false
}

type Resource struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Type         ResourceType `json:"resource_type"`
	Category     string       `json:"category,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	BandID       *string      `json:"band,omitempty"`
	FileURL      string       `json:"file,omitempty"`
	ExternalURL  string       `json:"external_url,omitempty"`
	Composer     string       `json:"composer,omitempty"`
	KeySignature string       `json:"key_signature,omitempty"`
	Tempo        int          `json:"tempo,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type Band struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Genre       string `json:"genre,omitempty"`
	Description string `json:"description,omitempty"`
}

type Student struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email,omitempty"`
	Instrument string `json:"instrument,omitempty"`
	IsActive   bool   `json:"is_active"`
}

type Teacher struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Specialization []string `json:"specialties,omitempty"`
}

// Preferences - пользовательские настройки интерфейса, хранятся на бэкенде.
type Preferences struct {
	DashboardLayout []string          `json:"dashboard_layout"`
	Notifications   map[string]bool   `json:"notifications"`
	TimeFormat24h   bool              `json:"time_format_24h"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// Clone нужен для черновика: правки не должны затрагивать зафиксированную копию.
func (p Preferences) Clone() Preferences {
	c := Preferences{
		DashboardLayout: append([]string(nil), p.DashboardLayout...),
		TimeFormat24h:   p.TimeFormat24h,
	}
	if p.Notifications != nil {
		c.Notifications = make(map[string]bool, len(p.Notifications))
		for k, v := range p.Notifications {
			c.Notifications[k] = v
		}
	}
	if p.Extra != nil {
		c.Extra = make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

type UserProfile struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Preferences Preferences `json:"preferences"`
}
