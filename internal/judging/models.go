package judging

import (
	"time"
)

// DefaultMaxPoints applies to rubric items saved without a maxPoints value.
const DefaultMaxPoints = 10.0

type RubricItem struct {
	Key         string  `json:"key" validate:"required"`
	Label       string  `json:"label" validate:"required"`
	Description string  `json:"description"`
	MaxPoints   float64 `json:"maxPoints" validate:"gt=0"`
}

type CarouselSlide struct {
	ImageURL    string `json:"imageUrl"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Subscription struct {
	Plan      string     `json:"plan" validate:"oneof=free plus ultra"`
	PaymentID string     `json:"paymentId,omitempty"`
	OrderID   string     `json:"orderId,omitempty"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
}

// Setting is the event-wide singleton document.
type Setting struct {
	EventTitle     string          `json:"eventTitle"`
	Subtitle       string          `json:"subtitle"`
	WelcomeTitle   string          `json:"welcomeTitle"`
	WelcomeBody    string          `json:"welcomeBody"`
	LogoURL        string          `json:"logoUrl"`
	AdminEmail     string          `json:"adminEmail" validate:"required,email"`
	Rubric         Rubric          `json:"rubric"`
	CarouselSlides []CarouselSlide `json:"carouselSlides"`
	Subscription   Subscription    `json:"subscription"`

	// AdminPasswordHash is kept out of the JSON document; passwords arrive
	// through SettingsPatch.
	AdminPasswordHash string `json:"-"`
}

type Project struct {
	ID       string `json:"id"`
	Title    string `json:"title" validate:"required"`
	Category string `json:"category"`
	Team     string `json:"team"`
	School   string `json:"school"`
	Contact  string `json:"contact"`
}

type Evaluator struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email" validate:"required,email"`
	Expertise string `json:"expertise"`
	Notes     string `json:"notes"`
	Code      string `json:"code,omitempty" validate:"required"`
}

// DisplayName falls back to the email when no name was recorded.
func (e Evaluator) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Email
}

// Profile holds the evaluator fields an evaluator may edit on their own
// record. Nil fields are left unchanged.
type Profile struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Expertise *string `json:"expertise"`
	Notes     *string `json:"notes"`
}

type Panel struct {
	ID           string   `json:"id"`
	Name         string   `json:"name" validate:"required"`
	EvaluatorIDs []string `json:"evaluatorIds"`
	ProjectIDs   []string `json:"projectIds"`
}

func (p Panel) hasEvaluator(id string) bool { return contains(p.EvaluatorIDs, id) }
func (p Panel) hasProject(id string) bool   { return contains(p.ProjectIDs, id) }

// Scores maps rubric item keys to the points awarded for that item.
type Scores map[string]float64

// Get returns the score for key, reading a missing key as zero.
func (s Scores) Get(key string) float64 { return s[key] }

func (s Scores) Sum() float64 {
	total := 0.0
	for _, v := range s {
		total += v
	}
	return total
}

// Result is one evaluator's scores for one project. CreatedAt is the first
// submission and Timestamp the last edit.
type Result struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	EvaluatorID string    `json:"evaluatorId"`
	PanelID     string    `json:"panelId,omitempty"`
	Scores      Scores    `json:"scores"`
	Remark      string    `json:"remark"`
	Total       float64   `json:"total"`
	Timestamp   time.Time `json:"ts"`
	CreatedAt   time.Time `json:"createdAt"`
}

type EvaluatorState struct {
	EvaluatorID  string `json:"evaluatorId"`
	FinalizedAll bool   `json:"finalizedAll"`
}

// Snapshot is the full data document served to clients.
type Snapshot struct {
	Settings       Setting                   `json:"settings"`
	Evaluators     []Evaluator               `json:"evaluators"`
	Projects       []Project                 `json:"projects"`
	Panels         []Panel                   `json:"panels"`
	Results        []Result                  `json:"results"`
	EvaluatorState map[string]EvaluatorState `json:"evaluatorState"`
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// dedupe keeps first occurrences and drops blanks.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
