package address

// Proof is a proof of derivation: the seeds and bump that reproduce a
// derived address under a given program identity.
type Proof struct {
	Seeds [][]byte
	Bump  uint8
}

// Address recomputes the address the proof stands for.
func (p Proof) Address(programID Address) (Address, error) {
	seeds := append(cloneSeeds(p.Seeds), []byte{p.Bump})
	return Create(programID, seeds...)
}

// Verify checks that the proof derives exactly the expected address.
func (p Proof) Verify(programID Address, expected Address) error {
	derived, err := p.Address(programID)
	if err != nil {
		return err
	}
	if derived != expected {
		return ErrInvalidProof
	}
	return nil
}

func cloneSeeds(seeds [][]byte) [][]byte {
	cloned := make([][]byte, len(seeds))
	for i, seed := range seeds {
		cloned[i] = append([]byte(nil), seed...)
	}
	return cloned
}
