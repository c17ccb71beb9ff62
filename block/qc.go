package block

import "sort"

// Quorum returns the minimum number of yes-votes for a valid QC:
// floor(2N/3) + 1, i.e. strictly more than floor(2N/3), for a fixed
// peer-set size N (spec §3, §6).
func Quorum(n int) int {
	return (2*n)/3 + 1
}

// BuildQC sorts voters and returns a QuorumCertificate referencing hash.
func BuildQC(hash [32]byte, voters []string) *QuorumCertificate {
	sorted := make([]string, len(voters))
	copy(sorted, voters)
	sort.Strings(sorted)
	return &QuorumCertificate{BlockHash: hash, Signature: sorted}
}

// ValidQC reports whether qc is valid against the recipient's own recorded
// votes for qc.BlockHash: the intersection of qc.Signature and
// localVotes[qc.BlockHash] must exceed floor(2N/3) (spec §3, §4.5.4). QC
// validation is deliberately against the recipient's own ledger of who it
// heard vote yes, not the sender's claimed voter set — this is what makes
// the check a local replay guard (spec §4.5.4).
func ValidQC(qc *QuorumCertificate, localVotes map[string]struct{}, n int) bool {
	if qc == nil {
		return false
	}
	count := 0
	for _, voter := range qc.Signature {
		if _, ok := localVotes[voter]; ok {
			count++
		}
	}
	return count > (2*n)/3
}
