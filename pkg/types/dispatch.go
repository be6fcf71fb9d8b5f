package types

// Card102Status is the state of an emergency dispatch card
type Card102Status int

const (
	Card102New               Card102Status = 1
	Card102AssignedForce     Card102Status = 2
	Card102ForceOnSpot       Card102Status = 3
	Card102OperationComplete Card102Status = 4
)

func (s Card102Status) String() string {
	switch s {
	case Card102New:
		return "new"
	case Card102AssignedForce:
		return "assigned_force"
	case Card102ForceOnSpot:
		return "force_on_spot"
	case Card102OperationComplete:
		return "operation_complete"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a known status.
func (s Card102Status) Valid() bool {
	return s >= Card102New && s <= Card102OperationComplete
}

// LocationUpdate is a position report for a dispatched unit
type LocationUpdate struct {
	GPSCode   int64
	Longitude float64
	Latitude  float64
}

// TaskMessage is a notification about a task created from a dialog
type TaskMessage struct {
	Notification TaskNotification
	Message      string
	Task         Task
}

// TaskNotification is the user-facing part of a TaskMessage
type TaskNotification struct {
	Title string
	URL   string
}

// Task identifies a backend task
type Task struct {
	ID      int64
	TrackID string
}
