package resumes

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	linkedinPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/[^\s,;|()]+`)
	githubPattern   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/[^\s,;|()]+`)
	urlPattern      = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s,;|()]+`)
	phonePattern    = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{7,}\d`)
	yearPattern     = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

var (
	companyWords = wordSet("inc", "corp", "corporation", "ltd", "llc", "company", "co", "gmbh", "plc",
		"technologies", "solutions", "labs", "group", "systems", "limited")
	titleWords = wordSet("engineer", "developer", "manager", "intern", "analyst", "architect", "designer",
		"consultant", "lead", "director", "scientist", "administrator", "specialist", "programmer")
	institutionWords = wordSet("university", "college", "institute", "school", "academy", "polytechnic")
	degreeWords      = wordSet("bachelor", "bachelors", "master", "masters", "degree", "phd", "bsc", "msc",
		"ba", "bs", "ms", "ma", "mba", "btech", "mtech", "diploma", "associate", "doctorate")
)

var bulletMarkers = []string{"-", "•", "*", "–", "·", "▪"}

type heuristicSection int

const (
	inPersonal heuristicSection = iota
	inExperience
	inEducation
	inProjects
	inExtra
)

// heuristicParser is a line scanner used when the model is unavailable.
// It only emits fields for text it actually matched.
type heuristicParser struct {
	fold       cases.Caser
	section    heuristicSection
	personal   Section
	extra      Section
	experience entryBuilder
	education  entryBuilder
	projects   entryBuilder
	hasName    bool
}

// HeuristicParse extracts sections from plain text without the model. The
// second return value is false when nothing was recognised.
func HeuristicParse(text string) (Sections, bool) {
	p := &heuristicParser{fold: cases.Fold()}
	for _, line := range strings.Split(norm.NFKC.String(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p.scan(line)
	}

	out := Sections{
		PersonalInfo: nonNil(p.personal),
		Education:    nonNil(p.education.fields),
		Experience:   nonNil(p.experience.fields),
		Projects:     nonNil(p.projects.fields),
		ExtraData:    nonNil(p.extra),
	}
	if out.FieldCount() == 0 {
		return PlaceholderSections(), false
	}
	return out, true
}

func (p *heuristicParser) scan(line string) {
	folded := p.fold.String(line)

	if matched := p.contacts(line, folded); len(matched) > 0 {
		if p.section == inPersonal {
			p.nameBesideContacts(line, matched)
		}
		return
	}
	if next, rest, head, ok := p.header(line, folded); ok {
		p.section = next
		switch {
		case rest == "":
		case next == inExtra:
			p.extraLine(rest, head)
		default:
			p.scan(rest)
		}
		return
	}

	switch p.section {
	case inPersonal:
		p.name(line, folded)
	case inExperience:
		p.experienceLine(line, folded)
	case inEducation:
		p.educationLine(line, folded)
	case inProjects:
		p.projectLine(line, folded)
	case inExtra:
		p.extraLine(line, "")
	}
}

func (p *heuristicParser) name(line, folded string) {
	if !p.hasName && looksLikeName(line) && !hasAnyWord(tokenize(folded), titleWords) {
		p.personal = append(p.personal, Field{Key: "name", Value: line})
		p.hasName = true
	}
}

// nameBesideContacts looks for the name in a header line such as
// "Jane Doe | jane@example.com | +1 555 123 4567" once the contacts are cut out.
func (p *heuristicParser) nameBesideContacts(line string, matched []string) {
	rest := line
	for _, m := range matched {
		rest = strings.Replace(rest, m, "|", 1)
	}
	for _, part := range strings.FieldsFunc(rest, isContactSeparator) {
		part = strings.TrimSpace(part)
		if p.hasName {
			return
		}
		if titleCased(part) {
			p.name(part, p.fold.String(part))
		}
	}
}

// contacts records contact details found anywhere in the document and
// returns the matched text. A non-empty result consumes the line.
func (p *heuristicParser) contacts(line, folded string) []string {
	var matched []string
	for _, email := range emailPattern.FindAllString(line, -1) {
		addRepeating(&p.personal, "email", email)
		matched = append(matched, email)
	}
	if m := linkedinPattern.FindString(line); m != "" {
		addRepeating(&p.personal, "linkedin", m)
		matched = append(matched, m)
	}
	if m := githubPattern.FindString(line); m != "" {
		if p.section == inProjects {
			p.projects.set("project_link", m)
		} else {
			addRepeating(&p.personal, "github", m)
		}
		matched = append(matched, m)
	}
	if strings.Contains(folded, "portfolio") || strings.Contains(folded, "website") {
		for _, m := range urlPattern.FindAllString(line, -1) {
			if linkedinPattern.MatchString(m) || githubPattern.MatchString(m) {
				continue
			}
			addRepeating(&p.personal, "portfolio", m)
			matched = append(matched, m)
		}
	}
	for _, m := range phonePattern.FindAllString(line, -1) {
		if p.isPhone(line, m) {
			m = strings.TrimSpace(m)
			addRepeating(&p.personal, "phone", m)
			matched = append(matched, m)
		}
	}
	return matched
}

// isPhone rejects digit runs that are dates: "2019.06 - 2021.08" has as
// many digits as a phone number. Outside the personal block a line that
// mentions a year is never a phone line.
func (p *heuristicParser) isPhone(line, candidate string) bool {
	if n := countDigits(candidate); n < 10 || n > 15 {
		return false
	}
	if len(yearPattern.FindAllString(candidate, -1)) >= 2 {
		return false
	}
	return p.section == inPersonal || !yearPattern.MatchString(line)
}

// header detects section titles such as "EXPERIENCE", "Work History:" or
// "Skills: Go, SQL". Text after the colon is returned for rescanning along
// with the folded title.
func (p *heuristicParser) header(line, folded string) (heuristicSection, string, string, bool) {
	if startsWithBullet(line) {
		return 0, "", "", false
	}
	head, rest, colon := folded, "", false
	if i := strings.IndexByte(line, ':'); i >= 0 {
		head = p.fold.String(line[:i])
		rest = strings.TrimSpace(line[i+1:])
		colon = true
	}
	words := tokenize(head)
	if len(words) == 0 || len(words) > 5 || hasAnyWord(words, titleWords) {
		return 0, "", "", false
	}

	var next heuristicSection
	switch {
	case containsAny(head, "experience", "work history", "employment"):
		next = inExperience
	case strings.Contains(head, "education"):
		next = inEducation
	case strings.Contains(head, "project"):
		next = inProjects
	case containsAny(head, "skill", "technical", "certif", "achievement", "language"):
		next = inExtra
	default:
		return 0, "", "", false
	}
	if next == p.section && !colon && strings.ToUpper(line) != line {
		return 0, "", "", false
	}
	return next, rest, head, true
}

func (p *heuristicParser) experienceLine(line, folded string) {
	words := tokenize(folded)
	switch {
	case startsWithBullet(line):
		p.experience.appendTo("responsibilities", stripBullet(line))
	case hasAnyWord(words, titleWords):
		p.experience.set("role", line)
	case hasAnyWord(words, companyWords):
		p.experience.set("company_name", line)
	case yearPattern.MatchString(line):
		p.experience.set("duration", line)
	default:
		p.experience.appendTo("responsibilities", line)
	}
}

func (p *heuristicParser) educationLine(line, folded string) {
	words := tokenize(folded)
	switch {
	case hasAnyWord(words, institutionWords):
		p.education.set("university", line)
	case hasAnyWord(words, degreeWords):
		p.education.set("degree", line)
	case yearPattern.MatchString(line):
		p.education.set("graduation_year", yearPattern.FindString(line))
	}
}

func (p *heuristicParser) projectLine(line, folded string) {
	switch {
	case urlPattern.MatchString(line):
		p.projects.set("project_link", urlPattern.FindString(line))
	case containsAny(folded, "technolog", "tech stack", "stack:", "built with", "tools"):
		value := stripBullet(line)
		if i := strings.IndexByte(value, ':'); i >= 0 && strings.TrimSpace(value[i+1:]) != "" {
			value = strings.TrimSpace(value[i+1:])
		}
		p.projects.set("project_tech", value)
	case startsWithBullet(line):
		p.projects.appendTo("project_desc", stripBullet(line))
	default:
		p.projects.set("project_name", line)
	}
}

// extraLine files a line under certifications, languages or skills. hint
// is the folded header or line used to pick the category.
func (p *heuristicParser) extraLine(line, hint string) {
	value := stripBullet(line)
	folded := hint + " " + p.fold.String(line)
	switch {
	case strings.Contains(folded, "certif"):
		addRepeating(&p.extra, "certifications", value)
	case strings.Contains(folded, "language"):
		addRepeating(&p.extra, "languages", value)
	default:
		addRepeating(&p.extra, "skills", value)
	}
}

// entryBuilder numbers grouped fields (company_name1, role1, company_name2).
// A key that repeats within the current entry starts the next one.
type entryBuilder struct {
	fields Section
	n      int
	seen   map[string]int
}

func (b *entryBuilder) next() {
	b.n++
	b.seen = make(map[string]int)
}

func (b *entryBuilder) set(key, value string) {
	if b.n == 0 {
		b.next()
	} else if _, dup := b.seen[key]; dup {
		b.next()
	}
	b.seen[key] = len(b.fields)
	b.fields = append(b.fields, Field{Key: fmt.Sprintf("%s%d", key, b.n), Value: value})
}

// appendTo joins value onto key in the current entry, newline separated.
func (b *entryBuilder) appendTo(key, value string) {
	if value == "" {
		return
	}
	if b.n == 0 {
		b.next()
	}
	if i, ok := b.seen[key]; ok {
		b.fields[i].Value += "\n" + value
		return
	}
	b.seen[key] = len(b.fields)
	b.fields = append(b.fields, Field{Key: fmt.Sprintf("%s%d", key, b.n), Value: value})
}

// addRepeating appends key, then key2, key3 for later values. Exact
// duplicates are skipped.
func addRepeating(sec *Section, key, value string) {
	if value == "" {
		return
	}
	count := 0
	for _, f := range *sec {
		if baseKey(f.Key) != key {
			continue
		}
		if f.Value == value {
			return
		}
		count++
	}
	if count > 0 {
		key = fmt.Sprintf("%s%d", key, count+1)
	}
	*sec = append(*sec, Field{Key: key, Value: value})
}

// baseKey strips a trailing numeric suffix.
func baseKey(key string) string {
	return strings.TrimRightFunc(key, unicode.IsDigit)
}

func looksLikeName(line string) bool {
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 5 || len(line) > 60 {
		return false
	}
	for _, r := range line {
		if !(unicode.IsLetter(r) || r == ' ' || r == '.' || r == '-' || r == '\'') {
			return false
		}
	}
	return true
}

// titleCased reports whether every word starts with an upper-case letter.
func titleCased(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if r := []rune(w)[0]; !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func isContactSeparator(r rune) bool {
	switch r {
	case '|', '•', '·', ',', ';', '/', '\t':
		return true
	}
	return false
}

func startsWithBullet(line string) bool {
	for _, m := range bulletMarkers {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return false
}

func stripBullet(line string) string {
	for _, m := range bulletMarkers {
		if strings.HasPrefix(line, m) {
			return strings.TrimSpace(strings.TrimPrefix(line, m))
		}
	}
	return strings.TrimSpace(line)
}

func tokenize(folded string) []string {
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasAnyWord(words []string, set map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func nonNil(s Section) Section {
	if s == nil {
		return Section{}
	}
	return s
}
