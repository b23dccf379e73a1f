package msi

import (
	"github.com/msitools/msiparser/cfb"
)

// Reserved stream names of the package signature.
const (
	DigitalSignatureStream   = "\x05DigitalSignature"
	DigitalSignatureExStream = "\x05MsiDigitalSignatureEx"
)

var signatureStreams = []string{DigitalSignatureStream, DigitalSignatureExStream}

// Signature is the raw payload of a signature stream. The payload is an
// opaque PKCS#7 blob.
type Signature struct {
	// Stream is the reserved stream name.
	Stream string
	// Name is the stream name without its control character prefix.
	Name string
	Data []byte
}

// IsSigned reports whether either signature stream is present.
func (p *Package) IsSigned() bool {
	return HasSignature(p.doc)
}

// Signatures extracts every signature stream that is present. Absent
// streams are not an error; unreadable ones are recorded in the report.
func (p *Package) Signatures() ([]Signature, *Report) {
	return ReadSignatures(p.doc)
}

// HasSignature reports whether a compound file holds a signature stream.
// It does not need a string pool.
func HasSignature(doc *cfb.Document) bool {
	for _, name := range signatureStreams {
		if e, ok := doc.Entry(name); ok && e.IsStream() {
			return true
		}
	}
	return false
}

// ReadSignatures is Package.Signatures for any compound file.
func ReadSignatures(doc *cfb.Document) ([]Signature, *Report) {
	var sigs []Signature
	report := &Report{}
	for _, name := range signatureStreams {
		e, ok := doc.Entry(name)
		if !ok || !e.IsStream() {
			continue
		}
		data, err := doc.ReadEntry(e)
		report.Add(name, err)
		if err != nil {
			continue
		}
		sigs = append(sigs, Signature{Stream: name, Name: cfb.PrintableName(name), Data: data})
	}
	return sigs, report
}
