package notary

import "github.com/bali-nebula/go-digital-notary/values"

// Resolver looks up the Document a Citation points to. Callers supply
// their own (a document store, a network fetch, an in-memory map); this
// package never assumes a built-in trust store or transport.
type Resolver func(citation *values.Catalog) (document *values.Catalog, found bool)

// ChainValid walks leaf's $previous links back to its genesis
// certificate, verifying every hop. A rotation certificate is valid only
// if it verifies against the certificate named by its own $previous
// citation (signed by the OLD key — spec.md §4.3 step 6); the genesis
// certificate is valid only if it verifies against itself. ChainValid
// returns false, nil on the first broken or unresolvable link, and
// propagates only structural errors (an unsupported protocol) from
// DocumentValid.
func (c *Core) ChainValid(leaf *values.Catalog, resolve Resolver) (bool, error) {
	current := leaf
	for {
		component, ok := current.GetCatalog("$component")
		if !ok {
			return false, nil
		}
		params := component.Parameters()
		if params == nil {
			return false, nil
		}
		previous, ok := params.Get("$previous")
		if !ok {
			return false, nil
		}

		if values.IsNone(previous) {
			return c.DocumentValid(current, current)
		}

		previousCitation, ok := previous.(*values.Catalog)
		if !ok {
			return false, nil
		}
		previousDocument, found := resolve(previousCitation)
		if !found {
			return false, nil
		}

		valid, err := c.DocumentValid(current, previousDocument)
		if err != nil {
			return false, err
		}
		if !valid {
			return false, nil
		}
		current = previousDocument
	}
}
