package payload

// Cursor is a forward-only, single-pass iterator over the elements of a validated
// payload set. Elements are cast and structurally validated lazily, on first visit,
// so a consumer can stop early without paying for full per-element validation of the
// whole set.
type Cursor[E ~[]byte] struct {
	buf         []byte
	offset      int
	index       uint32
	numElements uint32
	done        bool
	kind        elementKind
	castElement func([]byte) (E, error)
}

func newCursor[E ~[]byte](buf []byte, kind elementKind, castElement func([]byte) (E, error)) *Cursor[E] {
	return &Cursor[E]{
		buf:         buf,
		offset:      setHeaderLength,
		numElements: setNumElements(buf),
		done:        setNumElements(buf) == 0,
		kind:        kind,
		castElement: castElement,
	}
}

// Next returns the element at the current position and advances the cursor. It fails
// with ErrCursorOutOfBounds once every element has been returned; each element is
// returned exactly once.
func (c *Cursor[E]) Next() (E, error) {
	var zero E
	if c.done {
		return zero, ErrCursorOutOfBounds
	}

	remaining := c.buf[c.offset:]
	// Lengths were already checked by the outer set validation; re-check before
	// slicing anyway so a cursor over an unvalidated buffer cannot panic.
	if len(remaining) < c.kind.minLength() {
		return zero, ElementHeaderTooShortError{
			Kind: c.kind.name, Index: c.index, Remaining: len(remaining), Want: c.kind.minLength(),
		}
	}
	elementLength := c.kind.declaredLength(remaining)
	if len(remaining) < elementLength {
		return zero, ElementTooShortError{
			Kind: c.kind.name, Index: c.index, Remaining: len(remaining), Want: elementLength,
		}
	}

	element, err := c.castElement(remaining[:elementLength])
	if err != nil {
		return zero, err
	}

	c.offset += elementLength
	c.index++
	c.done = c.index == c.numElements
	return element, nil
}

// Index returns the number of elements consumed so far.
func (c *Cursor[E]) Index() uint32 { return c.index }

// NumElements returns the declared element count of the underlying set.
func (c *Cursor[E]) NumElements() uint32 { return c.numElements }

// Done reports whether every element has been consumed.
func (c *Cursor[E]) Done() bool { return c.done }
