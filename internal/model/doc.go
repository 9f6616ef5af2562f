// Package model defines the Memory Engine's record types: Memory,
// JournalEntry, IdentityCard and Rule, plus the enums (Gate, DecayClass,
// Sensitivity, Visibility, Relation) that type them.
package model
