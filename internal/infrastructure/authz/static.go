package authz

import "context"

// Static is a payment.Authorization backed by fixed wallet lists from
// configuration.
type Static struct {
	depositors     map[string]struct{}
	sessionCallers map[string]struct{}
	admins         map[string]struct{}
}

// NewStatic creates a static authorization oracle.
func NewStatic(depositors, sessionCallers, admins []string) *Static {
	return &Static{
		depositors:     toSet(depositors),
		sessionCallers: toSet(sessionCallers),
		admins:         toSet(admins),
	}
}

func toSet(wallets []string) map[string]struct{} {
	set := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		set[w] = struct{}{}
	}
	return set
}

func (s *Static) IsAuthorizedDepositor(_ context.Context, wallet string) (bool, error) {
	_, ok := s.depositors[wallet]
	return ok, nil
}

func (s *Static) IsAuthorizedSessionCaller(_ context.Context, wallet string) (bool, error) {
	_, ok := s.sessionCallers[wallet]
	return ok, nil
}

func (s *Static) IsAdmin(_ context.Context, wallet string) (bool, error) {
	_, ok := s.admins[wallet]
	return ok, nil
}
