// Package skills holds the controlled skill vocabulary used by the resume
// parser and the fit scorer: canonical names, synonyms, role-family clusters
// and requirement extraction from job descriptions.
package skills

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Role families used as a display hint on fit results.
const (
	FamilySoftware  = "Software Engineering"
	FamilyData      = "Data & Analytics"
	FamilyDevOps    = "DevOps & Infrastructure"
	FamilyProduct   = "Product & Design"
	FamilyMarketing = "Marketing"
	FamilySales     = "Sales"
	FamilyFinance   = "Finance"
	FamilyHealth    = "Healthcare"
)

// Families lists role families in tie-break order.
var Families = []string{
	FamilySoftware,
	FamilyData,
	FamilyDevOps,
	FamilyProduct,
	FamilyMarketing,
	FamilySales,
	FamilyFinance,
	FamilyHealth,
}

// entry is one vocabulary skill. When exact is set the canonical name only
// matches with its own casing ("Go", "Sketch"), because the lower-case form
// is an ordinary English word. Aliases always match case-insensitively.
type entry struct {
	name    string
	family  string
	aliases []string
	exact   bool
}

var vocabulary = []entry{
	// Software engineering
	{name: "Go", family: FamilySoftware, aliases: []string{"golang", "go lang"}, exact: true},
	{name: "Python", family: FamilySoftware},
	{name: "Java", family: FamilySoftware},
	{name: "JavaScript", family: FamilySoftware, aliases: []string{"js", "ecmascript"}},
	{name: "TypeScript", family: FamilySoftware, aliases: []string{"ts"}},
	{name: "C++", family: FamilySoftware, aliases: []string{"cpp"}},
	{name: "C#", family: FamilySoftware, aliases: []string{"csharp", "c sharp"}},
	{name: "Rust", family: FamilySoftware},
	{name: "Ruby", family: FamilySoftware},
	{name: "PHP", family: FamilySoftware},
	{name: "Kotlin", family: FamilySoftware},
	{name: "Swift", family: FamilySoftware, exact: true},
	{name: "Scala", family: FamilySoftware},
	{name: "Node.js", family: FamilySoftware, aliases: []string{"nodejs", "node js"}},
	{name: "React", family: FamilySoftware, aliases: []string{"reactjs", "react.js"}},
	{name: "Angular", family: FamilySoftware, aliases: []string{"angularjs"}},
	{name: "Vue", family: FamilySoftware, aliases: []string{"vuejs", "vue.js"}},
	{name: "Django", family: FamilySoftware},
	{name: "Flask", family: FamilySoftware},
	{name: "FastAPI", family: FamilySoftware},
	{name: "Spring Boot", family: FamilySoftware, aliases: []string{"springboot"}},
	{name: "Ruby on Rails", family: FamilySoftware, aliases: []string{"rails"}},
	{name: ".NET", family: FamilySoftware, aliases: []string{"dotnet", "asp.net"}},
	{name: "GraphQL", family: FamilySoftware},
	{name: "REST", family: FamilySoftware, aliases: []string{"restful", "rest api", "rest apis"}, exact: true},
	{name: "gRPC", family: FamilySoftware},
	{name: "Microservices", family: FamilySoftware, aliases: []string{"microservice", "micro-services"}},
	{name: "Distributed Systems", family: FamilySoftware},
	{name: "System Design", family: FamilySoftware},
	{name: "HTML", family: FamilySoftware, aliases: []string{"html5"}},
	{name: "CSS", family: FamilySoftware, aliases: []string{"css3"}},
	{name: "Git", family: FamilySoftware},
	{name: "PostgreSQL", family: FamilySoftware, aliases: []string{"postgres"}},
	{name: "MySQL", family: FamilySoftware},
	{name: "MongoDB", family: FamilySoftware, aliases: []string{"mongo"}},
	{name: "Redis", family: FamilySoftware},
	{name: "Kafka", family: FamilySoftware, aliases: []string{"apache kafka"}},
	{name: "RabbitMQ", family: FamilySoftware},
	{name: "Elasticsearch", family: FamilySoftware, aliases: []string{"elastic search"}},

	// Data and analytics
	{name: "SQL", family: FamilyData},
	{name: "Pandas", family: FamilyData},
	{name: "NumPy", family: FamilyData},
	{name: "Spark", family: FamilyData, aliases: []string{"apache spark", "pyspark"}},
	{name: "Hadoop", family: FamilyData},
	{name: "Tableau", family: FamilyData},
	{name: "Power BI", family: FamilyData, aliases: []string{"powerbi"}},
	{name: "Looker", family: FamilyData},
	{name: "Machine Learning", family: FamilyData, aliases: []string{"ml"}},
	{name: "Deep Learning", family: FamilyData},
	{name: "TensorFlow", family: FamilyData},
	{name: "PyTorch", family: FamilyData},
	{name: "scikit-learn", family: FamilyData, aliases: []string{"sklearn", "scikit learn"}},
	{name: "NLP", family: FamilyData, aliases: []string{"natural language processing"}},
	{name: "Computer Vision", family: FamilyData},
	{name: "Data Analysis", family: FamilyData, aliases: []string{"data analytics"}},
	{name: "Data Modeling", family: FamilyData, aliases: []string{"data modelling"}},
	{name: "ETL", family: FamilyData},
	{name: "Airflow", family: FamilyData, aliases: []string{"apache airflow"}},
	{name: "dbt", family: FamilyData},
	{name: "Snowflake", family: FamilyData},
	{name: "BigQuery", family: FamilyData, aliases: []string{"big query"}},
	{name: "Statistics", family: FamilyData},

	// DevOps and infrastructure
	{name: "Docker", family: FamilyDevOps},
	{name: "Kubernetes", family: FamilyDevOps, aliases: []string{"k8s"}},
	{name: "Terraform", family: FamilyDevOps},
	{name: "Ansible", family: FamilyDevOps},
	{name: "AWS", family: FamilyDevOps, aliases: []string{"amazon web services"}},
	{name: "GCP", family: FamilyDevOps, aliases: []string{"google cloud", "google cloud platform"}},
	{name: "Azure", family: FamilyDevOps, aliases: []string{"microsoft azure"}},
	{name: "CI/CD", family: FamilyDevOps, aliases: []string{"ci cd", "continuous integration", "continuous delivery"}},
	{name: "Jenkins", family: FamilyDevOps},
	{name: "GitHub Actions", family: FamilyDevOps},
	{name: "Prometheus", family: FamilyDevOps},
	{name: "Grafana", family: FamilyDevOps},
	{name: "Helm", family: FamilyDevOps},
	{name: "Linux", family: FamilyDevOps},
	{name: "Bash", family: FamilyDevOps, aliases: []string{"shell scripting"}},

	// Product and design
	{name: "Figma", family: FamilyProduct},
	{name: "Sketch", family: FamilyProduct, exact: true},
	{name: "Adobe XD", family: FamilyProduct},
	{name: "Photoshop", family: FamilyProduct, aliases: []string{"adobe photoshop"}},
	{name: "Illustrator", family: FamilyProduct, aliases: []string{"adobe illustrator"}},
	{name: "UX Research", family: FamilyProduct, aliases: []string{"user research"}},
	{name: "UI Design", family: FamilyProduct, aliases: []string{"interface design"}},
	{name: "Wireframing", family: FamilyProduct, aliases: []string{"wireframes"}},
	{name: "Prototyping", family: FamilyProduct},
	{name: "Product Management", family: FamilyProduct},
	{name: "Roadmapping", family: FamilyProduct, aliases: []string{"product roadmap", "roadmaps"}},
	{name: "A/B Testing", family: FamilyProduct, aliases: []string{"ab testing", "a/b tests", "split testing"}},
	{name: "Agile", family: FamilyProduct},
	{name: "Scrum", family: FamilyProduct},
	{name: "Jira", family: FamilyProduct},

	// Marketing
	{name: "SEO", family: FamilyMarketing, aliases: []string{"search engine optimization"}},
	{name: "SEM", family: FamilyMarketing, aliases: []string{"search engine marketing"}},
	{name: "Google Analytics", family: FamilyMarketing},
	{name: "Google Ads", family: FamilyMarketing, aliases: []string{"adwords"}},
	{name: "Content Marketing", family: FamilyMarketing},
	{name: "Social Media Marketing", family: FamilyMarketing, aliases: []string{"social media"}},
	{name: "Email Marketing", family: FamilyMarketing},
	{name: "HubSpot", family: FamilyMarketing},
	{name: "Marketo", family: FamilyMarketing},
	{name: "Copywriting", family: FamilyMarketing},
	{name: "Brand Management", family: FamilyMarketing, aliases: []string{"branding"}},

	// Sales
	{name: "Salesforce", family: FamilySales},
	{name: "CRM", family: FamilySales},
	{name: "Lead Generation", family: FamilySales},
	{name: "Account Management", family: FamilySales},
	{name: "Cold Calling", family: FamilySales},
	{name: "Negotiation", family: FamilySales},
	{name: "B2B Sales", family: FamilySales, aliases: []string{"b2b"}},
	{name: "Business Development", family: FamilySales},

	// Finance
	{name: "Excel", family: FamilyFinance, aliases: []string{"microsoft excel", "ms excel"}},
	{name: "Financial Modeling", family: FamilyFinance, aliases: []string{"financial modelling"}},
	{name: "Financial Analysis", family: FamilyFinance},
	{name: "Accounting", family: FamilyFinance},
	{name: "GAAP", family: FamilyFinance},
	{name: "Budgeting", family: FamilyFinance},
	{name: "Forecasting", family: FamilyFinance},
	{name: "QuickBooks", family: FamilyFinance},
	{name: "Auditing", family: FamilyFinance, aliases: []string{"audit"}},
	{name: "Valuation", family: FamilyFinance},

	// Healthcare
	{name: "Patient Care", family: FamilyHealth},
	{name: "EHR", family: FamilyHealth, aliases: []string{"electronic health records", "emr"}},
	{name: "Epic", family: FamilyHealth, exact: true},
	{name: "HIPAA", family: FamilyHealth},
	{name: "CPR", family: FamilyHealth},
	{name: "BLS", family: FamilyHealth, aliases: []string{"basic life support"}},
	{name: "Nursing", family: FamilyHealth},
	{name: "Phlebotomy", family: FamilyHealth},
	{name: "Medical Billing", family: FamilyHealth},
	{name: "Clinical Research", family: FamilyHealth},
	{name: "ICD-10", family: FamilyHealth},

	// Cross-functional
	{name: "Project Management", aliases: []string{"project manager"}},
	{name: "Stakeholder Management"},
}

// familyCues are role words that pull a description toward a family even
// when it names few vocabulary skills.
var familyCues = map[string][]string{
	FamilySoftware:  {"software", "engineer", "developer", "backend", "back-end", "frontend", "front-end", "full stack", "full-stack"},
	FamilyData:      {"data", "analyst", "analytics", "scientist", "bi"},
	FamilyDevOps:    {"devops", "sre", "site reliability", "infrastructure", "platform", "cloud"},
	FamilyProduct:   {"product manager", "product owner", "designer", "ux", "ui"},
	FamilyMarketing: {"marketing", "brand", "campaign", "growth"},
	FamilySales:     {"sales", "account executive", "quota", "business development"},
	FamilyFinance:   {"finance", "financial", "accountant", "accounting", "controller"},
	FamilyHealth:    {"nurse", "patient", "clinical", "medical", "healthcare", "hospital"},
}

// term is one searchable surface form of a vocabulary entry.
type term struct {
	text      string
	canonical string
	exact     bool
}

var (
	byAlias  map[string]*entry
	terms    []term
	cueTerms map[string][]term
)

func init() {
	byAlias = make(map[string]*entry, len(vocabulary)*2)
	for i := range vocabulary {
		e := &vocabulary[i]
		byAlias[strings.ToLower(e.name)] = e
		terms = append(terms, term{text: e.name, canonical: e.name, exact: e.exact})
		for _, a := range e.aliases {
			byAlias[a] = e
			terms = append(terms, term{text: a, canonical: e.name})
		}
	}
	// Longest first so "Spring Boot" wins over "spring" and "Google Cloud Platform" over "Google Cloud".
	sort.SliceStable(terms, func(a, b int) bool { return len(terms[a].text) > len(terms[b].text) })

	cueTerms = make(map[string][]term, len(familyCues))
	for family, cues := range familyCues {
		for _, c := range cues {
			cueTerms[family] = append(cueTerms[family], term{text: c, canonical: family})
		}
	}
}

// Canonical returns the vocabulary name for a skill or one of its synonyms.
func Canonical(name string) (string, bool) {
	e, ok := byAlias[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", false
	}
	return e.name, true
}

// FamilyOf returns the role family of a vocabulary skill, or "".
func FamilyOf(name string) string {
	if e, ok := byAlias[strings.ToLower(strings.TrimSpace(name))]; ok {
		return e.family
	}
	return ""
}

// NormalizeSkillName normalizes a skill name to its canonical form.
// Vocabulary skills take their canonical casing; anything else is trimmed,
// whitespace-collapsed and, when a single all-lower or all-upper word that is
// not an acronym, capitalized.
func NormalizeSkillName(skillName string) string {
	normalized := strings.Join(strings.Fields(skillName), " ")
	if normalized == "" {
		return ""
	}
	if canonical, ok := Canonical(normalized); ok {
		return canonical
	}
	if strings.Contains(normalized, " ") {
		return normalized
	}

	lower := strings.ToLower(normalized)
	upper := strings.ToUpper(normalized)
	switch {
	case normalized == upper && len(normalized) <= 4:
		// Short all-caps words are acronyms.
		return normalized
	case normalized == upper || normalized == lower:
		r, size := utf8.DecodeRuneInString(lower)
		return string(unicode.ToUpper(r)) + lower[size:]
	default:
		// Mixed case is kept as written.
		return normalized
	}
}

// Key returns the comparison key for a skill: canonical name, lower-cased.
func Key(name string) string {
	return strings.ToLower(NormalizeSkillName(name))
}

// Dedupe normalizes names and removes case-insensitive duplicates, keeping
// first-seen order.
func Dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		norm := NormalizeSkillName(n)
		if norm == "" {
			continue
		}
		k := strings.ToLower(norm)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, norm)
	}
	return out
}
