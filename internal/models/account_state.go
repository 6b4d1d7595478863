package models

// AccountState is the verification/profile lifecycle position of an account
type AccountState string

const (
	StateUnverified         AccountState = "unverified"
	StateVerifiedIncomplete AccountState = "verified_incomplete"
	StateActive             AccountState = "active"
)

// Routing hints returned to the frontend after authentication
const (
	NextStepVerifyEmail     = "verify-email"
	NextStepCompleteProfile = "complete-profile"
	NextStepDashboard       = "dashboard"
)

// State derives the lifecycle state from the verification and profile flags
func (a *Account) State() AccountState {
	switch {
	case !a.IsVerified:
		return StateUnverified
	case !a.ProfileCompleted:
		return StateVerifiedIncomplete
	default:
		return StateActive
	}
}

// NextStep tells the caller where to route the user next
func (a *Account) NextStep() string {
	switch a.State() {
	case StateUnverified:
		return NextStepVerifyEmail
	case StateVerifiedIncomplete:
		return NextStepCompleteProfile
	default:
		return NextStepDashboard
	}
}

// CanCompleteProfile checks the Verified&Incomplete -> Active transition guard
func (a *Account) CanCompleteProfile() error {
	switch a.State() {
	case StateUnverified:
		return ErrEmailNotVerified
	case StateActive:
		return ErrProfileAlreadyCompleted
	}
	return nil
}
