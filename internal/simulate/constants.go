package simulate

import "time"

// Request headers understood by the service.
const (
	headerTeam  = "X-Team"
	headerRole  = "X-Role"
	roleTeacher = "teacher"
)

// Runner timing constants.
const (
	settleMargin = 250 * time.Millisecond
	eventLeadIn  = time.Second
)
