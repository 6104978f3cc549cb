package transfer

import "github.com/xrparb/core/internal/domain"

// Address is one venue's approved XRP deposit destination: a wallet
// address plus the destination tag XRP deposits require to route to
// the correct sub-account.
type Address struct {
	Address        string
	DestinationTag string
	Whitelisted    bool
}

// AddressBook is the static, read-only-at-runtime table of approved
// withdrawal destinations (spec.md §4.6 "the address book is static and
// loaded at startup"). It is built once from configuration and never
// mutated by the transfer manager.
type AddressBook struct {
	entries [domain.NumVenues]Address
}

// NewAddressBook builds an AddressBook from a per-venue entry map, e.g.
// as decoded from the config file's transfer_addresses section.
func NewAddressBook(entries map[domain.Venue]Address) *AddressBook {
	b := &AddressBook{}
	for v, e := range entries {
		if v.Valid() {
			b.entries[v] = e
		}
	}
	return b
}

// IsWhitelisted reports whether a withdrawal from `from` to `to` is
// approved. The flag is keyed by destination venue only — spec.md §4.6
// describes it as "the per-destination flag" — but the predicate keeps
// the (from, to) shape so a future multi-address-per-destination
// extension does not change the call signature.
func (b *AddressBook) IsWhitelisted(from, to domain.Venue) bool {
	if !to.Valid() {
		return false
	}
	return b.entries[to].Whitelisted
}

// Lookup returns the approved destination address and tag for venue.
func (b *AddressBook) Lookup(to domain.Venue) (Address, bool) {
	if !to.Valid() {
		return Address{}, false
	}
	e := b.entries[to]
	return e, e.Whitelisted
}
