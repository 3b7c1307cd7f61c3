package types

// Contact holds the reachable details printed at the top of a resume.
type Contact struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
	Github   string `json:"github,omitempty"`
	Linkedin string `json:"linkedin,omitempty"`
}

// IsEmpty reports whether no contact field is set.
func (c Contact) IsEmpty() bool {
	return c == Contact{}
}

// Education is one entry of the education section
type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Duration    string `json:"duration,omitempty"`
	Note        string `json:"note,omitempty"`
}

// Experience is one job. Details are the bullet lines, in source order.
type Experience struct {
	Title    string   `json:"title,omitempty"`
	Company  string   `json:"company,omitempty"`
	Duration string   `json:"duration,omitempty"`
	Details  []string `json:"details"`
}

// Certification is one entry of the certifications section
type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date,omitempty"`
	ID     string `json:"id,omitempty"`
}

// ParsedResume is the canonical structured resume. Container fields are never
// nil once Normalize has run; CustomColors is passthrough data owned by the
// caller and is never altered by parsing or tailoring.
type ParsedResume struct {
	Name           string            `json:"name"`
	Title          string            `json:"title"`
	Summary        string            `json:"summary"`
	Contact        Contact           `json:"contact"`
	Education      []Education       `json:"education"`
	Experience     []Experience      `json:"experience"`
	Certifications []Certification   `json:"certifications"`
	Skills         []string          `json:"skills"`
	CustomColors   map[string]string `json:"customColors"`
	ProfileImage   string            `json:"profileImage,omitempty"`
}

// NewParsedResume returns an empty resume with all containers allocated.
func NewParsedResume() ParsedResume {
	r := ParsedResume{}
	r.Normalize()
	return r
}

// Normalize replaces nil containers with empty ones.
func (r *ParsedResume) Normalize() {
	if r.Education == nil {
		r.Education = []Education{}
	}
	if r.Experience == nil {
		r.Experience = []Experience{}
	}
	for i := range r.Experience {
		if r.Experience[i].Details == nil {
			r.Experience[i].Details = []string{}
		}
	}
	if r.Certifications == nil {
		r.Certifications = []Certification{}
	}
	if r.Skills == nil {
		r.Skills = []string{}
	}
	if r.CustomColors == nil {
		r.CustomColors = map[string]string{}
	}
}

// Clone returns a deep copy.
func (r ParsedResume) Clone() ParsedResume {
	out := r
	out.Education = append([]Education{}, r.Education...)
	out.Certifications = append([]Certification{}, r.Certifications...)
	out.Skills = append([]string{}, r.Skills...)
	out.Experience = make([]Experience, len(r.Experience))
	for i, e := range r.Experience {
		e.Details = append([]string{}, e.Details...)
		out.Experience[i] = e
	}
	out.CustomColors = make(map[string]string, len(r.CustomColors))
	for k, v := range r.CustomColors {
		out.CustomColors[k] = v
	}
	return out
}

// JobSpecification is the structured view of a job description. Confidence is
// computed locally from the extraction, never taken from the model.
type JobSpecification struct {
	Title            string   `json:"title"`
	Company          string   `json:"company,omitempty"`
	Location         string   `json:"location,omitempty"`
	EmploymentType   string   `json:"employmentType,omitempty"`
	Seniority        string   `json:"seniority,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	RequiredSkills   []string `json:"requiredSkills"`
	PreferredSkills  []string `json:"preferredSkills"`
	Responsibilities []string `json:"responsibilities"`
	Qualifications   []string `json:"qualifications"`
	Keywords         []string `json:"keywords"`
	Confidence       int      `json:"confidence"`
}

// Normalize replaces nil slices with empty ones.
func (j *JobSpecification) Normalize() {
	for _, s := range []*[]string{&j.RequiredSkills, &j.PreferredSkills, &j.Responsibilities, &j.Qualifications, &j.Keywords} {
		if *s == nil {
			*s = []string{}
		}
	}
}

// ParseMethod records which parser produced a resume
type ParseMethod string

const (
	ParseMethodAI            ParseMethod = "ai"
	ParseMethodAIPDF         ParseMethod = "ai_pdf"
	ParseMethodRegex         ParseMethod = "regex"
	ParseMethodRegexFallback ParseMethod = "regex_fallback"
)

// Tone controls the lexical register of tailored prose.
type Tone string

const (
	ToneFormal   Tone = "Formal"
	ToneNeutral  Tone = "Neutral"
	ToneCreative Tone = "Creative"
)

// JobSpecSource says where the job description came from.
type JobSpecSource string

const (
	JobSpecSourceUpload JobSpecSource = "upload"
	JobSpecSourcePasted JobSpecSource = "pasted"
)

// ParseResult is the outcome of the parse stage.
type ParseResult struct {
	Resume     ParsedResume `json:"resume"`
	Method     ParseMethod  `json:"method"`
	Confidence int          `json:"confidence"`
}

// JobSpecResult is the outcome of job description extraction.
type JobSpecResult struct {
	Spec       JobSpecification `json:"spec"`
	Confidence int              `json:"confidence"`
}

// TailorResult is the outcome of the tailoring stage. Commentary is the
// model's short fit assessment shown as "AI Insights".
type TailorResult struct {
	Resume     ParsedResume `json:"resume"`
	Commentary string       `json:"commentary,omitempty"`
}

// ParseResumeInput is the text sent to the AI parser.
type ParseResumeInput struct {
	Text string `json:"text"`
}

// ParseResumePDFInput carries raw PDF bytes for the direct PDF parser.
type ParseResumePDFInput struct {
	Data     []byte `json:"-"`
	Filename string `json:"filename,omitempty"`
}

// ExtractJobSpecInput is the job description text sent to the extractor.
type ExtractJobSpecInput struct {
	Text string `json:"text"`
}

// TailorResumeInput is everything the tailoring model sees.
type TailorResumeInput struct {
	Resume         ParsedResume     `json:"resume"`
	JobSpec        JobSpecification `json:"jobSpec"`
	Tone           Tone             `json:"tone"`
	ExtraPrompt    string           `json:"extraPrompt,omitempty"`
	LowConfidence  bool             `json:"lowConfidence"`
	SpecConfidence int              `json:"specConfidence"`
}

// TailorResumeOutput is the raw model answer before fact preservation.
type TailorResumeOutput struct {
	Resume     ParsedResume `json:"resume"`
	Commentary string       `json:"commentary"`
}
