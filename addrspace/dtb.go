package addrspace

import "bytes"

// ImageNameSignatureSize is the padded width of the kernel-process image
// name signature spec §4.A.6 scans for ("a well-known image name padded to
// 16 bytes" — e.g. "System\x00\x00..." for the Windows kernel process).
const ImageNameSignatureSize = 16

// PadImageName pads name with NUL bytes to ImageNameSignatureSize, building
// the exact byte pattern DTB discovery scans the physical layer for.
func PadImageName(name string) []byte {
	sig := make([]byte, ImageNameSignatureSize)
	copy(sig, name)
	return sig
}

// DTBCandidate is one hit location plus the DTB bytes found at a declared
// offset relative to it; ScanDTBCandidates doesn't know the struct layout
// around the image-name field, so dtbRelOffset and dtbSize are
// supplied by the caller (normally the profile, which knows the process
// struct's layout).
type DTBCandidate struct {
	SignatureOffset uint64
	DTB             uint64
}

// ScanDTBCandidates slides imageNameSignature across phys and, for each hit,
// reads a DTB value at hitOffset+dtbRelOffset (dtbSize bytes, little-endian).
// It never verifies a candidate — that's done by re-stacking a virtual
// layer with the DTB and checking a known structure round-trips (spec
// §4.A.6); this function only produces candidates to try.
func ScanDTBCandidates(phys AddressSpace, imageNameSignature []byte, dtbRelOffset int64, dtbSize int) []DTBCandidate {
	var out []DTBCandidate
	for run := range iterRuns(phys) {
		data := phys.ZRead(run.Start, int(run.Length))
		pos := 0
		for {
			idx := bytes.Index(data[pos:], imageNameSignature)
			if idx < 0 {
				break
			}
			hit := run.Start + uint64(pos+idx)
			dtbAddr := int64(hit) + dtbRelOffset
			if dtbAddr >= 0 {
				dtbBytes := phys.ZRead(uint64(dtbAddr), dtbSize)
				var dtb uint64
				for i := dtbSize - 1; i >= 0; i-- {
					dtb = dtb<<8 | uint64(dtbBytes[i])
				}
				out = append(out, DTBCandidate{SignatureOffset: hit, DTB: dtb})
			}
			pos += idx + 1
		}
	}
	return out
}

func iterRuns(as AddressSpace) func(yield func(Run) bool) {
	return as.Runs()
}
