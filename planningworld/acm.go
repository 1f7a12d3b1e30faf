package planningworld

import (
	"encoding/xml"
	"os"

	"github.com/pkg/errors"
)

// AllowedCollisionMatrix is a symmetric set of entity pairs excluded from
// self-collision checks, e.g. permanently adjacent links. Reflexive pairs are
// always allowed. Entries use the same qualified names the world uses for
// collision results, articulation:link.
type AllowedCollisionMatrix struct {
	allowed map[[2]string]bool
}

// NewAllowedCollisionMatrix creates an empty matrix.
func NewAllowedCollisionMatrix() *AllowedCollisionMatrix {
	return &AllowedCollisionMatrix{allowed: map[[2]string]bool{}}
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Allow marks a pair as exempt from collision checking, in both orders.
func (acm *AllowedCollisionMatrix) Allow(a, b string) {
	acm.allowed[pairKey(a, b)] = true
}

// Disallow removes a pair exemption.
func (acm *AllowedCollisionMatrix) Disallow(a, b string) {
	delete(acm.allowed, pairKey(a, b))
}

// Allowed returns whether a pair is exempt from collision checking.
func (acm *AllowedCollisionMatrix) Allowed(a, b string) bool {
	if a == b {
		return true
	}
	return acm.allowed[pairKey(a, b)]
}

// srdfConfig is the subset of an SRDF semantic robot description we read.
type srdfConfig struct {
	XMLName           xml.Name `xml:"robot"`
	DisableCollisions []struct {
		Link1  string `xml:"link1,attr"`
		Link2  string `xml:"link2,attr"`
		Reason string `xml:"reason,attr"`
	} `xml:"disable_collisions"`
}

// LoadSRDF reads disable_collisions pairs from SRDF XML and allows each pair,
// qualified under the given articulation name.
func (acm *AllowedCollisionMatrix) LoadSRDF(articulationName string, xmlData []byte) error {
	srdf := &srdfConfig{}
	if err := xml.Unmarshal(xmlData, srdf); err != nil {
		return errors.Wrap(err, "failed to unmarshal SRDF")
	}
	for _, dc := range srdf.DisableCollisions {
		acm.Allow(articulationName+":"+dc.Link1, articulationName+":"+dc.Link2)
	}
	return nil
}

// LoadSRDFFile reads an SRDF file, see LoadSRDF.
func (acm *AllowedCollisionMatrix) LoadSRDFFile(articulationName, filename string) error {
	xmlData, err := os.ReadFile(filename) //nolint:gosec
	if err != nil {
		return errors.Wrap(err, "failed to read SRDF file")
	}
	return acm.LoadSRDF(articulationName, xmlData)
}
