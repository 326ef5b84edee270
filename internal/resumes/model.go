package resumes

import (
	"strings"
	"time"
)

// Section names as exposed over the API.
const (
	SectionPersonalInfo = "personalInfo"
	SectionEducation    = "education"
	SectionExperience   = "experience"
	SectionProjects     = "projects"
	SectionExtraData    = "extraData"
)

// SectionNames lists every section in display order.
var SectionNames = []string{
	SectionPersonalInfo,
	SectionEducation,
	SectionExperience,
	SectionProjects,
	SectionExtraData,
}

// SentinelName is the placeholder shown when nothing could be extracted.
const SentinelName = "Please update your name"

// ParseSource records which parser tier produced the sections.
type ParseSource string

const (
	SourceAIDocument  ParseSource = "ai_document"
	SourceAIText      ParseSource = "ai_text"
	SourceHeuristic   ParseSource = "heuristic"
	SourcePlaceholder ParseSource = "placeholder"
)

// Field is one key/value entry in a section. Keys are client-defined.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Section is an ordered list of fields. Duplicate categories are told apart
// by numeric key suffixes (project_name1, project_name2).
type Section []Field

// Sections groups the five resume sections.
type Sections struct {
	PersonalInfo Section `json:"personalInfo"`
	Education    Section `json:"education"`
	Experience   Section `json:"experience"`
	Projects     Section `json:"projects"`
	ExtraData    Section `json:"extraData"`
}

// ChatEntry is one advisor exchange.
type ChatEntry struct {
	Message   string    `json:"message"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// Resume is a parsed resume owned by one user.
type Resume struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	FileName   string `json:"fileName"`
	MimeType   string `json:"mimeType"`
	StorageKey string `json:"-"`
	Sections
	ATSScore    int         `json:"atsScore"`
	ParseSource ParseSource `json:"parseSource"`
	ChatHistory []ChatEntry `json:"chatHistory"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// PlaceholderSections is the manual-entry record used when parsing found nothing.
func PlaceholderSections() Sections {
	return Sections{
		PersonalInfo: Section{{Key: "name", Value: SentinelName}},
		Education:    Section{},
		Experience:   Section{},
		Projects:     Section{},
		ExtraData:    Section{},
	}
}

// Get returns the named section.
func (s *Sections) Get(name string) (Section, bool) {
	ptr := s.ref(name)
	if ptr == nil {
		return nil, false
	}
	return *ptr, true
}

// Set replaces the named section. It reports false for unknown names.
func (s *Sections) Set(name string, sec Section) bool {
	ptr := s.ref(name)
	if ptr == nil {
		return false
	}
	*ptr = sec
	return true
}

func (s *Sections) ref(name string) *Section {
	switch name {
	case SectionPersonalInfo:
		return &s.PersonalInfo
	case SectionEducation:
		return &s.Education
	case SectionExperience:
		return &s.Experience
	case SectionProjects:
		return &s.Projects
	case SectionExtraData:
		return &s.ExtraData
	}
	return nil
}

// FieldCount counts fields with a value across all sections.
func (s Sections) FieldCount() int {
	n := 0
	for _, name := range SectionNames {
		sec, _ := s.Get(name)
		n += sec.filled()
	}
	return n
}

// IsPlaceholder reports whether only the manual-entry sentinel is present.
func (s Sections) IsPlaceholder() bool {
	if s.FieldCount() != 1 || len(s.PersonalInfo) != 1 {
		return false
	}
	return s.PersonalInfo[0].isSentinel()
}

// Clone returns a deep copy.
func (s Sections) Clone() Sections {
	return Sections{
		PersonalInfo: s.PersonalInfo.Clone(),
		Education:    s.Education.Clone(),
		Experience:   s.Experience.Clone(),
		Projects:     s.Projects.Clone(),
		ExtraData:    s.ExtraData.Clone(),
	}
}

// Clone returns a copy that never aliases the receiver. Nil becomes empty.
func (sec Section) Clone() Section {
	out := make(Section, len(sec))
	copy(out, sec)
	return out
}

// Normalize trims keys and values and drops fields without a key.
func (sec Section) Normalize() Section {
	out := make(Section, 0, len(sec))
	for _, f := range sec {
		f.Key = strings.TrimSpace(f.Key)
		f.Value = strings.TrimSpace(f.Value)
		if f.Key == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (sec Section) filled() int {
	n := 0
	for _, f := range sec {
		if strings.TrimSpace(f.Value) != "" {
			n++
		}
	}
	return n
}

func (f Field) isSentinel() bool {
	return f.Key == "name" && f.Value == SentinelName
}

// Clone returns a deep copy of the resume.
func (r Resume) Clone() Resume {
	out := r
	out.Sections = r.Sections.Clone()
	out.ChatHistory = make([]ChatEntry, len(r.ChatHistory))
	copy(out.ChatHistory, r.ChatHistory)
	return out
}
