package ecs

// UpdateFrame is handed to every system during one scheduler step.
type UpdateFrame struct {
	DeltaMs  float32
	Index    uint64
	Commands *Commands
	Storage  *Storage
}

func newUpdateFrame(deltaMs float32, index uint64, storage *Storage) *UpdateFrame {
	return &UpdateFrame{
		DeltaMs:  deltaMs,
		Index:    index,
		Commands: newCommands(),
		Storage:  storage,
	}
}
