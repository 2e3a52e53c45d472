// Package progress defines the observer contract long operations report
// to, and a terminal renderer. Producers accept a nil or Nop observer and
// stay oblivious to how updates are displayed.
package progress

// Observer receives (percent, message) updates from a long operation.
type Observer interface {
	// Update reports completion as a percentage in [0, 100] with a
	// short description of the current step.
	Update(percent float64, message string)

	// SetHeader names the operation the next updates belong to.
	SetHeader(text string)

	// SetNew resets the observer for a new run.
	SetNew()

	// Clear removes any rendered output.
	Clear()
}

// Nop is an Observer that discards every update.
type Nop struct{}

// Update implements Observer.
func (Nop) Update(float64, string) {}

// SetHeader implements Observer.
func (Nop) SetHeader(string) {}

// SetNew implements Observer.
func (Nop) SetNew() {}

// Clear implements Observer.
func (Nop) Clear() {}
