package gameplay

// Hit is the outcome of a glove landing on a player.
type Hit struct {
	// KnockbackMod is the speed given to the victim along the glove's path.
	KnockbackMod float32
	// Damage is added to the victim's damage percent.
	Damage float32
}

// HitRules decides the outcome of a landed punch from the victim's
// damage before the hit. Implementations must be pure: the same input
// always yields the same Hit, on every peer.
type HitRules interface {
	PlayerHit(damagePercent float32) (Hit, error)
}

// StandardRules scales knockback linearly with accumulated damage.
type StandardRules struct {
	Tuning *Tuning
}

func (r StandardRules) PlayerHit(damagePercent float32) (Hit, error) {
	t := r.Tuning
	return Hit{
		KnockbackMod: t.BaseKnockbackMod + float32(t.KnockbackScaling*damagePercent)/100,
		Damage:       t.GloveDamage,
	}, nil
}
