// Package types provides the program identity for the user ledger.
package types

// ProgramID is the ledger program's own address.
// All user account addresses are derived against this key.
var ProgramID = MustPubkeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

// SystemProgramAddr is the System Program address (all zeros).
// Freshly created account slots are owned by it.
var SystemProgramAddr = MustPubkeyFromBase58("11111111111111111111111111111111")
