package ledger

import "github.com/Gere321123/FHETaxSystem/internal/fhe"

// Checker evaluates settlement without decrypting anything.
type Checker struct {
	engine Engine
}

// Evaluate compares liability <= paid under encryption and reports whether
// the comparison produced a value. The encrypted truth value itself is not
// inspected: a well-formed record is therefore always reported as settled.
func (c Checker) Evaluate(rec PayerRecord) (fhe.Handle, bool, error) {
	h, err := c.engine.LessOrEqual(rec.Liability, rec.Paid)
	if err != nil {
		return fhe.Handle{}, false, err
	}
	return h, c.engine.IsInitialized(h), nil
}
