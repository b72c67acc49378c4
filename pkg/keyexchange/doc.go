// Package keyexchange implements the Fast Pair key-based pairing handshake.
//
// # Overview
//
// The seeker (host) and provider (accessory) agree on a 16-byte AES key K
// before the radio bond completes. K either is an account key issued during
// an earlier pairing, or is derived fresh through elliptic-curve key agreement
// against the provider's public key.
//
// # Key Material
//
// Key material is classified purely by length:
//
//   - 16 bytes: account key (symmetric path, no key agreement)
//   - anything else: provider public key (asymmetric path)
//
// Supported public keys:
//
//   - 32 bytes: X25519
//   - 64 bytes: P-256, raw X || Y (Fast Pair anti-spoofing format)
//   - 65 bytes: P-256, SEC1 uncompressed (0x04 || X || Y)
//
// # Key-Based Pairing
//
//  1. Seeker encrypts {0x00, flags, provider address, salt} with K.
//     On the asymmetric path the seeker's ephemeral public key is appended.
//  2. Provider decrypts, checks the address and answers with
//     {0x01, provider address, salt} encrypted with K.
//  3. Seeker decrypts and compares type and address in constant time.
//
// # Passkey Confirmation
//
// When the radio raises a passkey, the seeker sends {0x02, passkey, salt}
// and expects {0x03, passkey, salt} back. Both blocks are encrypted with K.
//
// # Account Key
//
// After an asymmetric exchange the seeker issues a fresh account key
// (first byte 0x04), encrypts it with K and writes it to the provider.
//
// # Cryptographic Parameters
//
//   - Block cipher: AES-128 (single block)
//   - KDF: HKDF-SHA256 over the ECDH shared point
//   - Additional data: AES-CTR + truncated HMAC-SHA256
package keyexchange
