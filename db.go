package verisend

type Database interface {
	Open() error
	Close() error
}
