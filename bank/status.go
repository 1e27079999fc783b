package bank

// AccountStatus is the lifecycle state of a bank account.
type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
	StatusLocked   AccountStatus = "locked"
	StatusClosed   AccountStatus = "closed"
)

// statusEvent names a lifecycle transition trigger.
type statusEvent string

const (
	eventUnlock  statusEvent = "unlock"
	eventClose   statusEvent = "close"
	eventLockout statusEvent = "lockout"
)

// statusTransitions is the single source of truth for status changes.
// CLOSED has no row: it is terminal. Unlock from ACTIVE is a no-op success.
var statusTransitions = map[AccountStatus]map[statusEvent]AccountStatus{
	StatusActive: {
		eventUnlock:  StatusActive,
		eventClose:   StatusClosed,
		eventLockout: StatusLocked,
	},
	StatusInactive: {
		eventUnlock:  StatusActive,
		eventLockout: StatusLocked,
	},
	StatusLocked: {
		eventUnlock:  StatusActive,
		eventLockout: StatusLocked,
	},
}

// next returns the state reached from s via ev, or false when the
// transition is not allowed.
func (s AccountStatus) next(ev statusEvent) (AccountStatus, bool) {
	to, ok := statusTransitions[s][ev]
	return to, ok
}
