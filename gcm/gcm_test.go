package gcm

import (
	"bytes"
	"crypto/cipher"
	"encoding/hex"
	"testing"

	"github.com/Forgot-Dream/sduWLKJAQCXCYSJK/sm4"
)

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Inputs from RFC 8998 Appendix A.1. The ciphertext matches the RFC;
// the expected tag differs because the session feeds AAD, ciphertext and the
// length words into GHASH as one raw concatenation, while the RFC pads AAD
// and ciphertext to the block boundary. The two framings agree whenever AAD
// and ciphertext are both block aligned (see TestSessionMatchesStdlib);
// the 20-byte AAD here is not.
var (
	sessionKey = mustDecodeHex("0123456789abcdeffedcba9876543210")
	sessionIV  = mustDecodeHex("00001234567800000000abcd")
	sessionAAD = mustDecodeHex("feedfacedeadbeeffeedfacedeadbeefabaddad2")
	sessionPT  = mustDecodeHex("aaaaaaaaaaaaaaaabbbbbbbbbbbbbbbb" +
		"ccccccccccccccccdddddddddddddddd" +
		"eeeeeeeeeeeeeeeeffffffffffffffff" +
		"eeeeeeeeeeeeeeeeaaaaaaaaaaaaaaaa")
	sessionCT = mustDecodeHex("17f399f08c67d5ee19d0dc9969c4bb7d" +
		"5fd46fd3756489069157b282bb200735" +
		"d82710ca5c22f0ccfa7cbf93d496ac15" +
		"a56834cbcf98c397b4024a2691233b8d")
	sessionTag = mustDecodeHex("fde2d4fb0c46301f920231f295b08a7c")
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	g := NewSession()
	if err := g.SetKey(sessionKey); err != nil {
		t.Fatalf("SetKey() failed: %v", err)
	}
	if err := g.SetIV(sessionIV); err != nil {
		t.Fatalf("SetIV() failed: %v", err)
	}
	return g
}

func TestSessionKnownAnswer(t *testing.T) {
	g := newTestSession(t)
	g.SetAAD(sessionAAD)

	ct, tag, err := g.Encrypt(sessionPT, TagSize)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if !bytes.Equal(ct, sessionCT) {
		t.Errorf("ciphertext\ngot:  %x\nwant: %x", ct, sessionCT)
	}
	if !bytes.Equal(tag, sessionTag) {
		t.Errorf("tag\ngot:  %x\nwant: %x", tag, sessionTag)
	}

	pt, err := g.Decrypt(ct, tag)
	if err != nil {
		t.Fatalf("Decrypt() failed: %v", err)
	}
	if !bytes.Equal(pt, sessionPT) {
		t.Errorf("plaintext\ngot:  %x\nwant: %x", pt, sessionPT)
	}
}

func TestRoundTrip(t *testing.T) {
	aads := [][]byte{nil, []byte("aad"), make([]byte, BlockSize)}

	for _, aad := range aads {
		for _, n := range []int{0, 1, 15, 16, 17, 31, 32, 33, 63, 100} {
			g := newTestSession(t)
			g.SetAAD(aad)

			pt := make([]byte, n)
			for i := range pt {
				pt[i] = byte(i)
			}

			ct, tag, err := g.Encrypt(pt, TagSize)
			if err != nil {
				t.Fatalf("Encrypt(%d bytes) failed: %v", n, err)
			}
			if len(ct) != n {
				t.Fatalf("ciphertext length %d for %d-byte plaintext", len(ct), n)
			}
			if len(tag) != TagSize {
				t.Fatalf("tag length %d, want %d", len(tag), TagSize)
			}

			got, err := g.Decrypt(ct, tag)
			if err != nil {
				t.Fatalf("Decrypt(%d bytes) failed: %v", n, err)
			}
			if !bytes.Equal(got, pt) {
				t.Errorf("round trip of %d bytes with %d-byte aad failed", n, len(aad))
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	g1 := newTestSession(t)
	g2 := newTestSession(t)
	g1.SetAAD(sessionAAD)
	g2.SetAAD(sessionAAD)

	ct1, tag1, err := g1.Encrypt(sessionPT, TagSize)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	ct2, tag2, err := g2.Encrypt(sessionPT, TagSize)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if !bytes.Equal(ct1, ct2) || !bytes.Equal(tag1, tag2) {
		t.Error("same key, IV, AAD and plaintext must produce identical output")
	}
}

func TestTamperDetection(t *testing.T) {
	g := newTestSession(t)
	g.SetAAD(sessionAAD)

	ct, tag, err := g.Encrypt(sessionPT, TagSize)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}

	// Every single-bit corruption of the tag must be rejected.
	for i := 0; i < len(tag); i++ {
		for bit := 0; bit < 8; bit++ {
			bad := append([]byte(nil), tag...)
			bad[i] ^= 1 << bit
			if pt, err := g.Decrypt(ct, bad); err != ErrAuthentication {
				t.Fatalf("tag bit %d of byte %d flipped: got err %v", bit, i, err)
			} else if pt != nil {
				t.Fatal("plaintext leaked on authentication failure")
			}
		}
	}

	// Corrupted ciphertext.
	badCT := append([]byte(nil), ct...)
	badCT[7] ^= 0x80
	if _, err := g.Decrypt(badCT, tag); err != ErrAuthentication {
		t.Errorf("corrupted ciphertext: got err %v", err)
	}

	// Truncated ciphertext.
	if _, err := g.Decrypt(ct[:len(ct)-1], tag); err != ErrAuthentication {
		t.Errorf("truncated ciphertext: got err %v", err)
	}

	// Changed AAD.
	g.SetAAD([]byte("somebody else's aad"))
	if _, err := g.Decrypt(ct, tag); err != ErrAuthentication {
		t.Errorf("changed aad: got err %v", err)
	}

	// Changed IV.
	g.SetAAD(sessionAAD)
	if err := g.SetIV(mustDecodeHex("ffffffffffffffffffffffff")); err != nil {
		t.Fatalf("SetIV() failed: %v", err)
	}
	if _, err := g.Decrypt(ct, tag); err != ErrAuthentication {
		t.Errorf("changed iv: got err %v", err)
	}
}

func TestTagTruncation(t *testing.T) {
	g := newTestSession(t)
	g.SetAAD(sessionAAD)

	_, full, err := g.Encrypt(sessionPT, TagSize)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}

	for _, tagLen := range []int{4, 8, 12, 15, 16, 20, 100} {
		ct, tag, err := g.Encrypt(sessionPT, tagLen)
		if err != nil {
			t.Fatalf("Encrypt(tagLen=%d) failed: %v", tagLen, err)
		}

		want := tagLen
		if want > TagSize {
			want = TagSize
		}
		if len(tag) != want {
			t.Fatalf("tagLen=%d: tag length %d, want %d", tagLen, len(tag), want)
		}
		if !bytes.Equal(tag, full[:want]) {
			t.Errorf("tagLen=%d: truncated tag is not a prefix of the full tag", tagLen)
		}

		// A truncated tag still authenticates: only the supplied bytes are compared.
		if _, err := g.Decrypt(ct, tag); err != nil {
			t.Errorf("tagLen=%d: Decrypt() failed: %v", tagLen, err)
		}
	}

	// Tags longer than 16 bytes are compared on the first 16 bytes only.
	g2 := newTestSession(t)
	g2.SetAAD(sessionAAD)
	ct, _, err := g2.Encrypt(sessionPT, TagSize)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	long := append(append([]byte(nil), full...), 0xde, 0xad)
	if _, err := g2.Decrypt(ct, long); err != nil {
		t.Errorf("overlong tag with valid prefix rejected: %v", err)
	}
}

func TestStateMachine(t *testing.T) {
	g := NewSession()

	if _, _, err := g.Encrypt(sessionPT, TagSize); err != ErrMissingKey {
		t.Errorf("Encrypt before SetKey: got err %v", err)
	}
	if _, err := g.Decrypt(sessionCT, sessionTag); err != ErrMissingKey {
		t.Errorf("Decrypt before SetKey: got err %v", err)
	}

	if err := g.SetKey(make([]byte, 15)); err == nil {
		t.Error("SetKey accepted a 15-byte key")
	} else if _, ok := err.(sm4.KeySizeError); !ok {
		t.Errorf("expected sm4.KeySizeError, got %v", err)
	}

	if err := g.SetKey(sessionKey); err != nil {
		t.Fatalf("SetKey() failed: %v", err)
	}
	if _, _, err := g.Encrypt(sessionPT, TagSize); err != ErrMissingIV {
		t.Errorf("Encrypt before SetIV: got err %v", err)
	}
	if _, err := g.Decrypt(sessionCT, sessionTag); err != ErrMissingIV {
		t.Errorf("Decrypt before SetIV: got err %v", err)
	}
	if err := g.SetIV(nil); err != ErrMissingIV {
		t.Errorf("SetIV(nil): got err %v", err)
	}

	if err := g.SetIV(sessionIV); err != nil {
		t.Fatalf("SetIV() failed: %v", err)
	}
	if _, _, err := g.Encrypt(sessionPT, TagSize); err != nil {
		t.Errorf("Encrypt with key and IV set failed: %v", err)
	}
}

func TestClearSession(t *testing.T) {
	g := newTestSession(t)
	g.SetAAD(sessionAAD)
	g.Clear()

	if _, _, err := g.Encrypt(sessionPT, TagSize); err != ErrMissingKey {
		t.Errorf("Encrypt after Clear: got err %v", err)
	}
	if _, err := g.Decrypt(sessionCT, sessionTag); err != ErrMissingKey {
		t.Errorf("Decrypt after Clear: got err %v", err)
	}

	// The session recovers after a fresh SetKey/SetIV.
	if err := g.SetKey(sessionKey); err != nil {
		t.Fatalf("SetKey() after Clear failed: %v", err)
	}
	if err := g.SetIV(sessionIV); err != nil {
		t.Fatalf("SetIV() after Clear failed: %v", err)
	}
	g.SetAAD(sessionAAD)

	ct, tag, err := g.Encrypt(sessionPT, TagSize)
	if err != nil {
		t.Fatalf("Encrypt() after Clear+SetKey failed: %v", err)
	}
	if !bytes.Equal(ct, sessionCT) || !bytes.Equal(tag, sessionTag) {
		t.Error("session diverges after Clear and re-initialization")
	}
}

func TestAADOptional(t *testing.T) {
	g1 := newTestSession(t)

	g2 := newTestSession(t)
	g2.SetAAD([]byte("to be replaced"))
	g2.SetAAD(nil)

	ct1, tag1, err := g1.Encrypt(sessionPT, TagSize)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	ct2, tag2, err := g2.Encrypt(sessionPT, TagSize)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if !bytes.Equal(ct1, ct2) || !bytes.Equal(tag1, tag2) {
		t.Error("SetAAD(nil) must behave like no AAD at all")
	}
}

// With block-aligned AAD and plaintext the raw GHASH framing coincides with
// the padded framing of NIST SP 800-38D, so the session output must match the
// standard library GCM over the same Engine bit for bit. Non-96-bit IVs also
// exercise the GHASH-derived J0 path on both sides.
func TestSessionMatchesStdlib(t *testing.T) {
	block, err := sm4.NewCipher(sessionKey)
	if err != nil {
		t.Fatalf("sm4.NewCipher() failed: %v", err)
	}

	for _, ivLen := range []int{12, 8, 16} {
		aead, err := cipher.NewGCMWithNonceSize(block, ivLen)
		if err != nil {
			t.Fatalf("NewGCMWithNonceSize(%d) failed: %v", ivLen, err)
		}
		iv := make([]byte, ivLen)
		for i := range iv {
			iv[i] = byte(0xa0 + i)
		}

		for _, aadLen := range []int{0, 16, 32} {
			for _, ptLen := range []int{16, 48} {
				aad := bytes.Repeat([]byte{0x5a}, aadLen)
				pt := bytes.Repeat([]byte{0xc3}, ptLen)

				g := NewSession()
				if err := g.SetKey(sessionKey); err != nil {
					t.Fatalf("SetKey() failed: %v", err)
				}
				if err := g.SetIV(iv); err != nil {
					t.Fatalf("SetIV() failed: %v", err)
				}
				g.SetAAD(aad)

				ct, tag, err := g.Encrypt(pt, TagSize)
				if err != nil {
					t.Fatalf("Encrypt() failed: %v", err)
				}
				got := append(append([]byte(nil), ct...), tag...)

				want := aead.Seal(nil, iv, pt, aad)
				if !bytes.Equal(got, want) {
					t.Errorf("ivLen=%d aadLen=%d ptLen=%d\ngot:  %x\nwant: %x",
						ivLen, aadLen, ptLen, got, want)
				}

				// And the session must accept what the standard library sealed.
				pt2, err := g.Decrypt(want[:ptLen], want[ptLen:])
				if err != nil {
					t.Fatalf("Decrypt() of stdlib output failed: %v", err)
				}
				if !bytes.Equal(pt2, pt) {
					t.Error("plaintext mismatch decrypting stdlib output")
				}
			}
		}
	}
}

func TestGHASHChunking(t *testing.T) {
	data := make([]byte, 53)
	for i := range data {
		data[i] = byte(i * 7)
	}

	splits := [][]int{{53}, {1, 52}, {16, 37}, {5, 11, 37}, {16, 16, 16, 5}}

	var want [BlockSize]byte
	h := newGHASH(0x0123456789abcdef, 0xfedcba9876543210)
	h.write(data)
	h.sum(&want)

	for _, split := range splits {
		h := newGHASH(0x0123456789abcdef, 0xfedcba9876543210)
		off := 0
		for _, n := range split {
			h.write(data[off : off+n])
			off += n
		}
		var got [BlockSize]byte
		h.sum(&got)
		if got != want {
			t.Errorf("split %v\ngot:  %x\nwant: %x", split, got[:], want[:])
		}
	}
}

func BenchmarkSessionEncrypt(b *testing.B) {
	g := NewSession()
	g.SetKey(sessionKey)
	g.SetIV(sessionIV)
	pt := make([]byte, 1024)

	b.SetBytes(int64(len(pt)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Encrypt(pt, TagSize)
	}
}

func BenchmarkSessionDecrypt(b *testing.B) {
	g := NewSession()
	g.SetKey(sessionKey)
	g.SetIV(sessionIV)
	pt := make([]byte, 1024)
	ct, tag, _ := g.Encrypt(pt, TagSize)

	b.SetBytes(int64(len(ct)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Decrypt(ct, tag)
	}
}
