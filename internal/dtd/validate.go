package dtd

import (
	"fmt"
	"strings"
)

// validateSystemLiteral enforces the SystemLiteral production's sole
// restriction once quoting is stripped away: it must not contain a
// URI fragment identifier.
func validateSystemLiteral(s string) error {
	if strings.ContainsRune(s, '#') {
		return fmt.Errorf("system identifier %q must not contain a URI fragment", s)
	}
	return nil
}

// pubidChars is the PubidChar production: a fixed character set,
// notably excluding '&' (so a PUBLIC literal never contains a general
// entity reference, unlike SystemLiteral/EntityValue). '%' is allowed —
// a PUBLIC literal is never itself subject to parameter-entity
// expansion, so its presence there is just an ordinary character, not
// a reference.
const pubidChars = " \r\n" +
	"abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"-'()+,./:=?;!*#@$_%"

func validatePubidLiteral(s string) error {
	for _, r := range s {
		if r >= 0x80 || !strings.ContainsRune(pubidChars, r) {
			return fmt.Errorf("public identifier %q contains a character outside PubidChar", s)
		}
	}
	return nil
}
