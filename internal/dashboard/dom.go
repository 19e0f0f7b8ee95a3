package dashboard

import (
	"fmt"

	"github.com/rileyhilliard/whm/internal/history"
)

// TargetContainer is the container every page mounts its sections into.
const TargetContainer = "target_container"

// Document is the view tree of one page. Panels append their own sections
// to a container that must already exist.
type Document struct {
	containers map[string]*Container
	order      []string
}

// NewDocument creates a document with the given containers.
func NewDocument(containerIDs ...string) *Document {
	d := &Document{containers: make(map[string]*Container)}
	for _, id := range containerIDs {
		d.AddContainer(id)
	}
	return d
}

// AddContainer creates a container, or returns the existing one.
func (d *Document) AddContainer(id string) *Container {
	if c, ok := d.containers[id]; ok {
		return c
	}
	c := &Container{ID: id}
	d.containers[id] = c
	d.order = append(d.order, id)
	return c
}

// Container looks up a container by id.
func (d *Document) Container(id string) (*Container, error) {
	c, ok := d.containers[id]
	if !ok {
		return nil, fmt.Errorf("no container %q in document", id)
	}
	return c, nil
}

// Sections returns every section in container order.
func (d *Document) Sections() []*Section {
	var out []*Section
	for _, id := range d.order {
		out = append(out, d.containers[id].Sections...)
	}
	return out
}

// Section finds a section by id.
func (d *Document) Section(id string) *Section {
	for _, s := range d.Sections() {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Container holds sections in append order.
type Container struct {
	ID       string
	Sections []*Section
}

// Append adds a section at the end of the container.
func (c *Container) Append(s *Section) {
	c.Sections = append(c.Sections, s)
}

// Section is one block of a page. Only the parts a page fills in are set.
type Section struct {
	ID    string
	Title string

	Text     string
	Warnings []string
	Table    *Table

	Current *CanvasElement
	Scope   *ScopeSelect
	Form    *Form
	History *CanvasElement
	Empty   *Notice
}

// Table is a current-value table.
type Table struct {
	Headers []string
	Rows    [][]string
}

// CanvasElement is the slot a chart is drawn into.
type CanvasElement struct {
	ID      string
	Visible bool
}

// Notice is a message that can be shown or hidden.
type Notice struct {
	Text    string
	Visible bool
}

// ScopeSelect is the hours/days/weeks selector of a panel.
type ScopeSelect struct {
	Options  []history.Scope
	Selected history.Scope
}

// Checkbox is one field toggle of a control form.
type Checkbox struct {
	Name    string
	Checked bool
}

// Form is a panel's control form. Change listeners fire whenever a
// checkbox is toggled.
type Form struct {
	ID        string
	boxes     []*Checkbox
	listeners []func()
}

// Add appends a checkbox and returns it.
func (f *Form) Add(name string, checked bool) *Checkbox {
	cb := &Checkbox{Name: name, Checked: checked}
	f.boxes = append(f.boxes, cb)
	return cb
}

// Boxes returns the checkboxes in order.
func (f *Form) Boxes() []*Checkbox {
	return f.boxes
}

// Box returns the checkbox for name, or nil.
func (f *Form) Box(name string) *Checkbox {
	for _, cb := range f.boxes {
		if cb.Name == name {
			return cb
		}
	}
	return nil
}

// Toggle flips checkbox i (0-based) and fires a change event.
func (f *Form) Toggle(i int) bool {
	if i < 0 || i >= len(f.boxes) {
		return false
	}
	f.boxes[i].Checked = !f.boxes[i].Checked
	f.Trigger()
	return true
}

// SetChecked sets a checkbox by name and fires a change event.
func (f *Form) SetChecked(name string, checked bool) bool {
	cb := f.Box(name)
	if cb == nil {
		return false
	}
	cb.Checked = checked
	f.Trigger()
	return true
}

// OnChange registers a change listener.
func (f *Form) OnChange(fn func()) {
	f.listeners = append(f.listeners, fn)
}

// Off removes every change listener.
func (f *Form) Off() {
	f.listeners = nil
}

// Trigger fires a change event.
func (f *Form) Trigger() {
	for _, fn := range f.listeners {
		fn()
	}
}

// ListenerCount returns the number of registered change listeners.
func (f *Form) ListenerCount() int {
	return len(f.listeners)
}
