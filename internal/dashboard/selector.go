package dashboard

// SeriesSelector renders one checkbox per field into a panel's control form
// and reads back which fields are checked. The checkboxes are created once
// and survive scope changes.
type SeriesSelector struct {
	form   *Form
	fields []string
}

// NewSeriesSelector creates a selector over form.
func NewSeriesSelector(form *Form) *SeriesSelector {
	return &SeriesSelector{form: form}
}

// Render appends a checkbox per field, checked unless listed in
// defaultUnchecked. Calling it again is a no-op.
func (s *SeriesSelector) Render(fieldOrder, defaultUnchecked []string) {
	if s.fields != nil {
		return
	}
	hidden := make(map[string]bool, len(defaultUnchecked))
	for _, name := range defaultUnchecked {
		hidden[name] = true
	}

	s.fields = append([]string{}, fieldOrder...)
	for _, name := range fieldOrder {
		s.form.Add(name, !hidden[name])
	}
}

// Fields returns the field order the selector was rendered with.
func (s *SeriesSelector) Fields() []string {
	return s.fields
}

// CurrentSelection returns the checked fields, in field order.
func (s *SeriesSelector) CurrentSelection() []string {
	selected := []string{}
	for _, cb := range s.form.Boxes() {
		if cb.Checked {
			selected = append(selected, cb.Name)
		}
	}
	return selected
}
