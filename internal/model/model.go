package model

// All lists the tables managed by auto-migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&FamilyLink{},
		&Account{},
		&PointTransaction{},
		&Reward{},
		&RewardRequest{},
		&OutboxMessage{},
	}
}
