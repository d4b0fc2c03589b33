package profile

import "strings"

const (
	// ContextHeader opens the context text.
	ContextHeader = "Here are all the employee profiles:\n"
	// RecordSeparator sits between two formatted profiles.
	RecordSeparator = "\n---\n"
)

// Format renders one profile as labelled lines, each ending in a newline.
func Format(p Profile) string {
	var b strings.Builder
	b.WriteString("Name: " + p.FirstName + " " + p.LastName + "\n")
	b.WriteString("Slug: " + p.Slug + "\n")
	b.WriteString("Expertise: " + p.AreaOfExpertise + "\n")
	b.WriteString("Type: " + p.Type + "\n")
	b.WriteString("Current Location: " + p.CurrentLocation + "\n")
	b.WriteString("Career Summary: " + p.CareerSummary + "\n")
	return b.String()
}

// FormatAll joins the formatted profiles under ContextHeader. No profiles
// means no context: the result is "".
func FormatAll(profiles []Profile) string {
	if len(profiles) == 0 {
		return ""
	}
	parts := make([]string, len(profiles))
	for i, p := range profiles {
		parts[i] = Format(p)
	}
	return ContextHeader + strings.Join(parts, RecordSeparator)
}
