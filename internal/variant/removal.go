package variant

// RemovalAction is what happens to a persisted variant left out of a replace-mode target set.
type RemovalAction int

const (
	RemovalHardDelete RemovalAction = iota
	RemovalSoftDisable
	// RemovalRetain applies when the variant must not be deleted and the schema has no flag to disable it.
	RemovalRetain
)

func (a RemovalAction) String() string {
	switch a {
	case RemovalHardDelete:
		return "hard_delete"
	case RemovalSoftDisable:
		return "soft_disable"
	default:
		return "retain"
	}
}

// DecideRemoval picks the removal action for one unkept variant.
// Locked variants are never hard-deleted, and neither are variants any offer row still
// references, since deleting them would break the offer's foreign key.
func DecideRemoval(locked, referenced, canHardDelete, canSoftDisable bool) RemovalAction {
	if !locked && !referenced && canHardDelete {
		return RemovalHardDelete
	}
	if canSoftDisable {
		return RemovalSoftDisable
	}
	return RemovalRetain
}
