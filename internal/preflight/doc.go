// Package preflight provides readiness checks for the hardware, external
// tools and filesystem paths the sorter depends on.
//
// These checks run in two contexts:
//   - The daemon entrypoint calls RunAll at startup so a misconfigured rig
//     fails loudly before the first card is fed.
//   - The CLI "cardsort status" command uses individual check functions
//     (CheckScryfall, CheckDirectoryAccess) to display service health.
//
// Hardware checks are skipped in mock mode.
package preflight
