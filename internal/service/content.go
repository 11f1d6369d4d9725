package service

// PageContent 是站点页面文案的整体文档，按页面/区块划分。
type PageContent struct {
	Hero         HeroSection      `json:"hero"`
	AboutClub    AboutClubSection `json:"aboutClub"`
	Stats        []StatItem       `json:"stats"`
	Partners     []Partner        `json:"partners"`
	KontaktPage  ContactPage      `json:"kontaktPage"`
	PartnersPage PartnersPage     `json:"partnersPage"`
	Theme        Theme            `json:"theme"`
}

// HeroSection is the banner on the home page.
type HeroSection struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Image    string `json:"image"`
	CTALabel string `json:"ctaLabel,omitempty"`
	CTALink  string `json:"ctaLink,omitempty"`
}

// AboutClubSection 的 Body 为 Markdown。
type AboutClubSection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image"`
}

type StatItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Partner struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
	URL  string `json:"url,omitempty"`
	Tier string `json:"tier,omitempty"`
}

// ContactPage 的 Intro 为 Markdown。
type ContactPage struct {
	Title   string `json:"title"`
	Intro   string `json:"intro"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// PartnersPage 的 Intro 为 Markdown。
type PartnersPage struct {
	Title string `json:"title"`
	Intro string `json:"intro"`
}

type Theme struct {
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
	LogoURL      string `json:"logoUrl,omitempty"`
}

// DefaultPageContent 返回内置的默认文档；每次调用都会返回新的副本。
func DefaultPageContent() PageContent {
	return PageContent{
		Hero: HeroSection{
			Title:    "Willkommen beim SV Blau-Weiss",
			Subtitle: "Fußball, Gemeinschaft und Leidenschaft seit 1921",
			Image:    "/images/hero-default.jpg",
			CTALabel: "Mitglied werden",
			CTALink:  "/kontakt",
		},
		AboutClub: AboutClubSection{
			Title: "Über den Verein",
			Body:  "Wir sind ein **Traditionsverein** mit über 400 Mitgliedern und Mannschaften von den Bambini bis zu den Alten Herren.",
			Image: "/images/about-default.jpg",
		},
		Stats: []StatItem{
			{Label: "Mitglieder", Value: "400+"},
			{Label: "Mannschaften", Value: "18"},
			{Label: "Gegründet", Value: "1921"},
		},
		Partners: []Partner{},
		KontaktPage: ContactPage{
			Title: "Kontakt",
			Intro: "Schreib uns eine Nachricht oder komm beim Training vorbei.",
			Email: "info@example.org",
		},
		PartnersPage: PartnersPage{
			Title: "Unsere Partner",
			Intro: "Ohne unsere Partner wäre der Spielbetrieb nicht möglich.",
		},
		Theme: Theme{
			PrimaryColor: "#0b3d91",
			AccentColor:  "#ffffff",
		},
	}
}

// withDefaultImages 浅合并两个必需的图片字段，避免后端文档缺失图片地址。
func withDefaultImages(doc PageContent) PageContent {
	defaults := DefaultPageContent()
	if doc.Hero.Image == "" {
		doc.Hero.Image = defaults.Hero.Image
	}
	if doc.AboutClub.Image == "" {
		doc.AboutClub.Image = defaults.AboutClub.Image
	}
	return doc
}

func (p PageContent) clone() PageContent {
	out := p
	if p.Stats != nil {
		out.Stats = make([]StatItem, len(p.Stats))
		copy(out.Stats, p.Stats)
	}
	if p.Partners != nil {
		out.Partners = make([]Partner, len(p.Partners))
		copy(out.Partners, p.Partners)
	}
	return out
}
