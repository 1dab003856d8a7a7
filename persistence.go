package godix

// ledgerKey is the metadata key the Ledger is attached under.
type ledgerKey struct{}

// MetadataSource is anything carrying attached metadata. Collection and
// Provider both satisfy it.
type MetadataSource interface {
	Metadata(key any) (any, bool)
}

// EnsureLedger returns the Ledger attached to c, attaching a new one on
// first use. Repeated calls on the same collection return the same Ledger no
// matter how the registration list has been reordered in between. The
// registration list itself is never touched.
//
// Like the rest of registration, EnsureLedger expects a single writer.
func EnsureLedger(c Collection) *Ledger {
	if ledger, ok := LedgerFrom(c); ok {
		return ledger
	}

	ledger := newLedger()
	c.SetMetadata(ledgerKey{}, ledger)
	return ledger
}

// LedgerFrom returns the Ledger attached to a collection, or carried over to
// a provider built from it.
func LedgerFrom(src MetadataSource) (*Ledger, bool) {
	if src == nil {
		return nil, false
	}

	value, ok := src.Metadata(ledgerKey{})
	if !ok {
		return nil, false
	}

	ledger, ok := value.(*Ledger)
	return ledger, ok && ledger != nil
}
