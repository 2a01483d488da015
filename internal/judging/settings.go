package judging

import "strings"

const (
	defaultAdminEmail    = "admin@example.com"
	defaultAdminPassword = "admin123"
)

// DefaultSettings is the document served before an admin saves anything.
// The admin password is set separately so the caller can hash it.
func DefaultSettings() Setting {
	return Setting{
		EventTitle:   "Science Carnival 2025",
		Subtitle:     "Project Evaluation System",
		WelcomeTitle: "Welcome to Science Carnival 2025",
		WelcomeBody:  "Please select your role to continue.",
		LogoURL:      "https://dummyimage.com/128x128/1f2a52/ffffff&text=SE",
		AdminEmail:   defaultAdminEmail,
		Rubric:       DefaultRubric(),
		CarouselSlides: []CarouselSlide{
			{ImageURL: "carousel1.png", Title: "Innovative Science Carnival", Description: "Empowering future scientists to showcase their groundbreaking ideas."},
			{ImageURL: "carousel2.png", Title: "Digital Evaluation Excellence", Description: "Streamlined, fair, and transparent evaluation for every project."},
			{ImageURL: "carousel3.png", Title: "The Future of Innovation", Description: "Witness the next generation of engineers and dreamers in action."},
		},
		Subscription: Subscription{Plan: "free"},
	}
}

// SettingsPatch is a partial settings update. Nil fields keep their stored
// value; lists replace the stored list wholesale.
type SettingsPatch struct {
	EventTitle     *string          `json:"eventTitle"`
	Subtitle       *string          `json:"subtitle"`
	WelcomeTitle   *string          `json:"welcomeTitle"`
	WelcomeBody    *string          `json:"welcomeBody"`
	LogoURL        *string          `json:"logoUrl"`
	AdminEmail     *string          `json:"adminEmail"`
	AdminPassword  *string          `json:"adminPassword"`
	Rubric         *Rubric          `json:"rubric"`
	CarouselSlides *[]CarouselSlide `json:"carouselSlides"`
	Subscription   *Subscription    `json:"subscription"`
}

// apply merges p into s. The password is returned rather than applied.
func (p SettingsPatch) apply(s Setting) (Setting, string) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&s.EventTitle, p.EventTitle)
	set(&s.Subtitle, p.Subtitle)
	set(&s.WelcomeTitle, p.WelcomeTitle)
	set(&s.WelcomeBody, p.WelcomeBody)
	set(&s.LogoURL, p.LogoURL)
	set(&s.AdminEmail, p.AdminEmail)
	if p.Rubric != nil {
		s.Rubric = p.Rubric.normalize()
	}
	if p.CarouselSlides != nil {
		s.CarouselSlides = *p.CarouselSlides
	}
	if p.Subscription != nil {
		s.Subscription = *p.Subscription
	}
	var password string
	if p.AdminPassword != nil {
		password = *p.AdminPassword
	}
	return s, password
}

func validateSettings(s Setting) error {
	p := problems(problemsOf(checkStruct(s)))
	p = append(p, problemsOf(s.Rubric.validate())...)
	return p.err()
}
