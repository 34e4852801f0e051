package cnst

// Role levels. Lower value means more privileged.
const (
	LevelOwner     = 1
	LevelAdmin     = 2
	LevelSubDealer = 3
	LevelEmployee  = 4
	LevelCustomer  = 5
)

// Access types for delegated administrators.
const (
	AccessFull     = "full"
	AccessFiltered = "filtered"
)
