// Package embedded holds the development-only probe license used by the
// facade's construction-time production check.
package embedded

import _ "embed"

//go:embed prod-license.lcpl
var ProdProbeLicense []byte

// ProdProbePassphrase is the only passphrase that unlocks ProdProbeLicense.
// It is never a valid passphrase for any real catalog entry; its sole job
// is to let a development build identify itself by successfully decrypting
// this one fixed license.
const ProdProbePassphrase = "lcpcheck-development-probe-passphrase"
