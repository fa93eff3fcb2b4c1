// Package notify defines the publish side of the real-time notification
// channel. Components receive a Publisher at construction time
package notify

// Event names pushed to connected clients
const (
	AlertCreated = "nueva-alerta"
	AlertUpdated = "actualizacion-alerta"
	AlertDeleted = "eliminacion-alerta"
	LaborCreated = "nueva-labor-agricola"
	LaborUpdated = "actualizacion-labor-agricola"
	LaborDeleted = "eliminacion-labor-agricola"
)

// Publisher fans an event out to subscribers. Publish must not block and
// must not report delivery failures to the caller
type Publisher interface {
	Publish(event string, payload interface{})
}

// Discard drops every event
type Discard struct{}

func (Discard) Publish(string, interface{}) {}
