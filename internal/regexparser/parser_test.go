package regexparser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

const sampleResume = `Jane Doe
Senior Software Engineer
jane@example.com | +1 555 123 4567 | Cape Town, South Africa
github.com/janedoe | linkedin.com/in/janedoe

Summary
Backend engineer with ten years of experience building payment systems.

Experience
Software Engineer, Acme Corp, 2019–2022
- Built X
- Led Y

Staff Engineer at Globex (Jan 2022 - Present)
- Scaled Z

Education
BSc Computer Science, University of Cape Town, 2012–2015

Skills
Go, PostgreSQL, Kubernetes
Languages: Python; Go

Certifications
AWS Certified Solutions Architect, Amazon Web Services, 2021, Credential ID: ABC-1234
`

func TestParseFullResume(t *testing.T) {
	res := Parse(sampleResume)
	r := res.Resume

	assert.Equal(t, "Jane Doe", r.Name)
	assert.Equal(t, "Senior Software Engineer", r.Title)
	assert.Equal(t, "Backend engineer with ten years of experience building payment systems.", r.Summary)

	assert.Equal(t, types.Contact{
		Email:    "jane@example.com",
		Phone:    "+1 555 123 4567",
		Location: "Cape Town, South Africa",
		Github:   "github.com/janedoe",
		Linkedin: "linkedin.com/in/janedoe",
	}, r.Contact)

	require.Len(t, r.Experience, 2)
	assert.Equal(t, types.Experience{
		Title:    "Staff Engineer",
		Company:  "Globex",
		Duration: "Jan 2022 - Present",
		Details:  []string{"Scaled Z"},
	}, r.Experience[1])

	assert.Equal(t, []types.Education{{
		Degree:      "BSc Computer Science",
		Institution: "University of Cape Town",
		Duration:    "2012–2015",
	}}, r.Education)

	assert.Equal(t, []string{"Go", "PostgreSQL", "Kubernetes", "Python"}, r.Skills)

	assert.Equal(t, []types.Certification{{
		Name:   "AWS Certified Solutions Architect",
		Issuer: "Amazon Web Services",
		Date:   "2021",
		ID:     "ABC-1234",
	}}, r.Certifications)

	assert.Equal(t, Sections{Name: true, Contact: true, Education: true, Experience: true, Skills: true}, res.Sections)
	assert.Equal(t, 100, res.Confidence)
}

func TestParseExperienceBlock(t *testing.T) {
	res := Parse("Experience\nSoftware Engineer, Acme Corp, 2019–2022\n- Built X\n- Led Y")

	require.Len(t, res.Resume.Experience, 1)
	assert.Equal(t, types.Experience{
		Title:    "Software Engineer",
		Company:  "Acme Corp",
		Duration: "2019–2022",
		Details:  []string{"Built X", "Led Y"},
	}, res.Resume.Experience[0])
	assert.Equal(t, 20, res.Confidence)
}

func TestParseExperienceLayouts(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []types.Experience
	}{
		{
			name: "two line header",
			body: "Senior Developer\nInitech | 2016 - 2019\n- Shipped TPS reports",
			want: []types.Experience{{Title: "Senior Developer", Company: "Initech", Duration: "2016 - 2019", Details: []string{"Shipped TPS reports"}}},
		},
		{
			name: "date on its own line",
			body: "Analyst, Hooli\nMarch 2015 to June 2016\n• Modelled churn",
			want: []types.Experience{{Title: "Analyst", Company: "Hooli", Duration: "March 2015 to June 2016", Details: []string{"Modelled churn"}}},
		},
		{
			name: "jobs split by date without blank line",
			body: "Engineer, A, 2018 - 2019\n- one\nEngineer, B, 2019 - 2020\n- two",
			want: []types.Experience{
				{Title: "Engineer", Company: "A", Duration: "2018 - 2019", Details: []string{"one"}},
				{Title: "Engineer", Company: "B", Duration: "2019 - 2020", Details: []string{"two"}},
			},
		},
		{
			name: "prose details",
			body: "Consultant | Self-employed | 2020 - Present\nAdvised startups on data platforms.\nRan workshops for engineering teams.",
			want: []types.Experience{{Title: "Consultant", Company: "Self-employed", Duration: "2020 - Present", Details: []string{
				"Advised startups on data platforms.",
				"Ran workshops for engineering teams.",
			}}},
		},
		{
			name: "header then blank then bullets",
			body: "Developer at Umbrella\n\n- Wrote code",
			want: []types.Experience{{Title: "Developer", Company: "Umbrella", Details: []string{"Wrote code"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExperience(strings.Split(tt.body, "\n"))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEducationLayouts(t *testing.T) {
	body := "University of Cape Town\nBSc Computer Science (2012 - 2015)\n- Dean's list\n\nMSc Data Science, Stellenbosch University, 2016"
	got := parseEducation(strings.Split(body, "\n"))

	assert.Equal(t, []types.Education{
		{Degree: "BSc Computer Science", Institution: "University of Cape Town", Duration: "2012 - 2015", Note: "Dean's list"},
		{Degree: "MSc Data Science", Institution: "Stellenbosch University", Duration: "2016"},
	}, got)
}

func TestParseCertificationsLayouts(t *testing.T) {
	body := "- Certified Kubernetes Administrator from CNCF (2023)\n- Scrum Master | Scrum.org\n- Identity Management Basics"
	got := parseCertifications(strings.Split(body, "\n"))

	assert.Equal(t, []types.Certification{
		{Name: "Certified Kubernetes Administrator", Issuer: "CNCF", Date: "2023"},
		{Name: "Scrum Master", Issuer: "Scrum.org"},
		{Name: "Identity Management Basics"},
	}, got)
}

func TestSectionHeadersAreCaseInsensitive(t *testing.T) {
	for _, header := range []string{"SKILLS", "skills", "Skills:", "## Technical Skills", "**Skills**"} {
		t.Run(header, func(t *testing.T) {
			res := Parse(header + "\nGo, Rust")
			assert.Equal(t, []string{"Go", "Rust"}, res.Resume.Skills)
			assert.True(t, res.Sections.Skills)
		})
	}
}

func TestInlineSectionHeaders(t *testing.T) {
	res := Parse("Jane Doe\nSkills: Go, Rust\n**Certifications:** AWS Certified Developer, Amazon\nSummary: Backend engineer")

	assert.Equal(t, "Jane Doe", res.Resume.Name)
	assert.Empty(t, res.Resume.Title)
	assert.Equal(t, []string{"Go", "Rust"}, res.Resume.Skills)
	assert.True(t, res.Sections.Skills)
	require.Len(t, res.Resume.Certifications, 1)
	assert.Equal(t, "Backend engineer", res.Resume.Summary)

	res = Parse("Jane Doe\nEmail: jane@example.com")
	assert.Empty(t, res.Resume.Skills)
	assert.Equal(t, "jane@example.com", res.Resume.Contact.Email)
}

func TestNameDetection(t *testing.T) {
	tests := []struct {
		first string
		want  string
	}{
		{"Jane Doe", "Jane Doe"},
		{"# Mary-Jane O'Neil", "Mary-Jane O'Neil"},
		{"JOHN SMITH", "JOHN SMITH"},
		{"Curriculum Vitae", ""},
		{"jane doe", ""},
		{"Experience", ""},
		{"Jane Doe 2024", ""},
	}
	for _, tt := range tests {
		t.Run(tt.first, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.first+"\n").Resume.Name)
		})
	}
}

func TestContactFallbackFindsFooter(t *testing.T) {
	res := Parse("Jane Doe\n\nSkills\nGo\n\nReferences\nContact me at jane@example.com or https://github.com/jane/")
	assert.Equal(t, "jane@example.com", res.Resume.Contact.Email)
	assert.Equal(t, "https://github.com/jane", res.Resume.Contact.Github)
	assert.True(t, res.Sections.Contact)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		s    Sections
		want int
	}{
		{"none", Sections{}, 0},
		{"name only", Sections{Name: true}, 20},
		{"three", Sections{Name: true, Contact: true, Skills: true}, 60},
		{"all", Sections{Name: true, Contact: true, Education: true, Experience: true, Skills: true}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.s))
		})
	}
}

func TestParseIsIdempotent(t *testing.T) {
	assert.Equal(t, Parse(sampleResume), Parse(sampleResume))
}

func TestParseNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"\n\n\n",
		"- - -",
		"@@@ ||| •••",
		strings.Repeat("2019–2022 ", 200),
		"\x00\xff\xfe",
		"Experience\n- orphan bullet",
		"Education\n\n\n- note without entry",
		"Certifications\n()",
		"((((((((",
	}
	for _, in := range inputs {
		res := Parse(in)
		assert.GreaterOrEqual(t, res.Confidence, 0)
		assert.LessOrEqual(t, res.Confidence, 100)
		assert.NotNil(t, res.Resume.Skills)
		assert.NotNil(t, res.Resume.Experience)
		assert.NotNil(t, res.Resume.CustomColors)
	}
}

func FuzzParse(f *testing.F) {
	f.Add(sampleResume)
	f.Add("Experience\nSoftware Engineer, Acme Corp, 2019–2022\n- Built X")
	f.Add("")
	f.Fuzz(func(t *testing.T, text string) {
		res := Parse(text)
		if res.Confidence < 0 || res.Confidence > 100 {
			t.Fatalf("confidence out of range: %d", res.Confidence)
		}
		if res.Confidence != Confidence(res.Sections) {
			t.Fatalf("confidence %d does not match sections %+v", res.Confidence, res.Sections)
		}
	})
}
