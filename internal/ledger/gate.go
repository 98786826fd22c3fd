package ledger

import "fmt"

// Gate enforces the single authorization rule: caller == authority.
type Gate struct {
	state *State
}

// Require returns nil iff caller is the current authority.
func (g Gate) Require(caller string) error {
	auth, err := g.state.Authority()
	if err != nil {
		return err
	}
	if caller != auth {
		return fmt.Errorf("%w: caller is not the tax authority", ErrUnauthorized)
	}
	return nil
}
