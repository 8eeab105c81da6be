package model

// ReplayState is the game state reconstructed from an event log alone
type ReplayState struct {
	Name      string
	Status    GameStatus
	Roles     map[UserID]Role
	TagCounts map[UserID]int
	OzMaxTags int
}

// Replay folds log entries in order into the status, role and tag-count
// history they describe. Entries are applied as recorded; no rules are
// re-validated.
func Replay(entries []GameEventLog) ReplayState {
	st := ReplayState{
		Roles:     make(map[UserID]Role),
		TagCounts: make(map[UserID]int),
	}

	for _, e := range entries {
		switch e.Kind {
		case EventGameCreated:
			st.Status = GameStatusNew
			if e.GameCreated != nil {
				st.Name = e.GameCreated.GameName
			}
		case EventPlayerJoined:
			if e.PlayerJoined != nil {
				st.Roles[e.ActorID] = e.PlayerJoined.Role
				st.TagCounts[e.ActorID] = 0
			}
		case EventPlayerLeft:
			delete(st.Roles, e.ActorID)
			delete(st.TagCounts, e.ActorID)
		case EventGameStarted:
			st.Status = GameStatusActive
		case EventTag:
			if e.Tag != nil {
				st.Roles[e.Tag.ReceiverID] = RoleZombie
				st.TagCounts[e.ActorID] = e.Tag.TaggerTagCount
			}
		case EventPlayerRoleChangedByMod:
			if e.RoleChanged != nil {
				st.Roles[e.ActorID] = e.RoleChanged.NewRole
			}
		case EventActiveStatusChanged:
			if e.StatusChanged != nil {
				st.Status = e.StatusChanged.Status
			}
		case EventGameSettingsChanged:
			if e.SettingsChanged != nil && e.SettingsChanged.Setting == SettingOzMaxTags {
				st.OzMaxTags = e.SettingsChanged.OzMaxTags
			}
		case EventRandomOzsSelected:
			if e.RandomOzs != nil {
				for _, id := range e.RandomOzs.Chosen {
					st.Roles[id] = RoleOZ
				}
			}
		}
	}

	return st
}
