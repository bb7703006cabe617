package core

type (
	// Row and Header are attributes of the ResultStream iterator
	Row    []any
	Header []string

	// ResultStream is the result of an executed statement in the form of an iterator
	ResultStream interface {
		Header() Header
		Next() (Row, error)
		HasNext() bool
		Close()
	}
)
