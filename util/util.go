package util

// Unpack assigns the leading elements of a slice to the given pointers,
// destructuring style. Extra elements are dropped, pointers beyond the
// end of the slice keep whatever they already held
func Unpack[T any](src []T, into ...*T) {
	n := len(src)
	if len(into) < n {
		n = len(into)
	}
	for i := 0; i < n; i++ {
		*into[i] = src[i]
	}
}
