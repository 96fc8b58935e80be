// Package secrets seals small per-organization secrets (API keys, mail
// credentials) at rest.
//
// A Sealer holds the 32-byte application key. Every Seal/Open call takes a
// scope, normally the owning organization's id, which is used both as the
// HKDF salt for the AES-256-GCM key and as additional authenticated data. A
// ciphertext produced for one organization therefore cannot be opened under
// another organization's scope, even if the rows are swapped in storage.
//
// Ciphertexts are base64 strings: nonce || sealed data || tag.
//
//	sealer, err := secrets.NewSealer(appKey)
//	ct, err := sealer.Seal(org.ID[:], "sk_live_...")
//	pt, err := sealer.Open(org.ID[:], ct)
package secrets
