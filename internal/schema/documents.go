package schema

func str(name, desc string, required bool) Field {
	return Field{Name: name, Kind: KindString, Description: desc, Required: required}
}

func strList(name, desc string) Field {
	return Field{Name: name, Kind: KindArray, Description: desc, Required: true,
		Items: &Field{Kind: KindString}}
}

func objList(name, desc string, fields ...Field) Field {
	return Field{Name: name, Kind: KindArray, Description: desc, Required: true,
		Items: &Field{Kind: KindObject, Fields: fields}}
}

var resumeFields = []Field{
	str("name", "Full name exactly as written, empty if absent", true),
	str("title", "Professional headline, empty if absent", true),
	str("summary", "Summary or profile paragraph, empty if absent", true),
	{
		Name: "contact", Kind: KindObject, Required: true,
		Fields: []Field{
			str("email", "", false),
			str("phone", "", false),
			str("location", "", false),
			str("website", "Personal site or portfolio URL", false),
			str("github", "GitHub profile URL", false),
			str("linkedin", "LinkedIn profile URL", false),
		},
	},
	objList("education", "Education entries in source order",
		str("degree", "", true),
		str("institution", "", true),
		str("duration", "", false),
		str("note", "Honours, GPA or thesis line", false),
	),
	objList("experience", "Jobs in source order",
		str("title", "Job title", false),
		str("company", "", false),
		str("duration", "Date range exactly as written", false),
		strList("details", "Bullet points verbatim"),
	),
	objList("certifications", "Certifications in source order",
		str("name", "", true),
		str("issuer", "", true),
		str("date", "", false),
		str("id", "Credential id", false),
	),
	strList("skills", "Skills in source order"),
}

// ParsedResume is the shape of a structured resume as returned by the model.
// customColors and profileImage are caller-owned and may appear in stored
// documents, but are never requested from the model.
var ParsedResume = &Schema{
	Name: "ParsedResume",
	Fields: append(append([]Field{}, resumeFields...),
		Field{Name: "customColors", Kind: KindStringMap},
		str("profileImage", "", false),
	),
}

// JobSpecification is the shape of an extracted job description.
var JobSpecification = &Schema{
	Name: "JobSpecification",
	Fields: []Field{
		str("title", "Role title, empty if not stated", true),
		str("company", "", false),
		str("location", "", false),
		str("employmentType", "Full-time, contract, etc.", false),
		str("seniority", "Junior, mid, senior, lead, etc.", false),
		str("summary", "One or two sentence role summary", false),
		strList("requiredSkills", "Skills stated as required"),
		strList("preferredSkills", "Skills stated as nice to have"),
		strList("responsibilities", "Duties of the role"),
		strList("qualifications", "Education, experience or certification requirements"),
		strList("keywords", "Distinctive terms useful for matching"),
	},
}

// Tailoring is the shape of a tailored resume plus the model's commentary.
var Tailoring = &Schema{
	Name: "TailoredResume",
	Fields: []Field{
		{Name: "resume", Kind: KindObject, Required: true, Fields: resumeFields},
		str("commentary", "Short assessment of fit between resume and role", true),
	},
}
