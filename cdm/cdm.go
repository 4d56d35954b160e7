// Package cdm serializes a conjunction record into the CCSDS-shaped XML
// document spec.md §4.8 defines. The teacher serializes to JSON/CSV in
// export.go via encoding/json and encoding/csv; none of the corpus repos
// import a third-party XML library, so this package uses the standard
// library's encoding/xml (see DESIGN.md) with explicit strconv.FormatFloat
// calls for every numeric field, since §4.8's 6/9-decimal and
// 3-significant-digit scientific-notation requirements must hold
// independent of encoding/xml's own float formatting.
package cdm

import (
	"encoding/xml"
	"strconv"
	"time"

	"github.com/ssacore/conjunction/internal/vec3"
)

// originator is the fixed ORIGINATOR string spec.md §4.8 requires.
const originator = "SSACORE"

// StateVector is one object's position/velocity at TCA, in km and km/s, as
// the CDM body requires.
type StateVector struct {
	ObjectID string
	Source   string
	Position vec3.V // km
	Velocity vec3.V // km/s
}

// Record is the borrowed view of an Event that the core passes to Serialize
// for one document. The package never retains it, per spec.md §3's
// ownership rule ("the CDM serializer borrows an Event for one serialization
// call; it never retains it").
type Record struct {
	EventID        string
	CreationDate   time.Time
	TCA            time.Time
	MissDistanceKM float64
	RelSpeedKMS    float64
	Pc             float64
	RiskLevel      string
	Primary        StateVector
	Secondary      StateVector
}

type xmlHeader struct {
	XMLName      xml.Name `xml:"header"`
	CreationDate string   `xml:"CREATION_DATE"`
	Originator   string   `xml:"ORIGINATOR"`
}

type xmlMetadata struct {
	XMLName              xml.Name `xml:"metadata"`
	EventID              string   `xml:"EVENT_ID"`
	TCA                  string   `xml:"TCA"`
	MissDistanceKM       string   `xml:"MISS_DISTANCE_KM"`
	RelSpeedKMS          string   `xml:"REL_SPEED_KMS"`
	CollisionProbability string   `xml:"COLLISION_PROBABILITY"`
	RiskLevel            string   `xml:"RISK_LEVEL"`
}

type xmlStateVector struct {
	XMLName xml.Name `xml:"stateVector"`
	X       string   `xml:"X_KM"`
	Y       string   `xml:"Y_KM"`
	Z       string   `xml:"Z_KM"`
	VX      string   `xml:"VX_KMS"`
	VY      string   `xml:"VY_KMS"`
	VZ      string   `xml:"VZ_KMS"`
}

type xmlObject struct {
	XMLName     xml.Name `xml:"object"`
	ID          string   `xml:"id,attr"`
	ObjectID    string   `xml:"OBJECT_ID"`
	Source      string   `xml:"SOURCE"`
	StateVector xmlStateVector
}

type xmlBody struct {
	XMLName  xml.Name `xml:"body"`
	Metadata xmlMetadata
	Objects  []xmlObject `xml:"object"`
}

type xmlCDM struct {
	XMLName xml.Name `xml:"CDM"`
	Xmlns   string   `xml:"xmlns,attr"`
	Header  xmlHeader
	Body    xmlBody
}

// Serialize renders r into the canonical CDM XML byte sequence, per spec.md
// §4.8: UTF-8, no BOM, fixed element order, fixed numeric precision.
func Serialize(r Record) ([]byte, error) {
	doc := xmlCDM{
		Xmlns: "urn:ccsds:schema:ndm-xml",
		Header: xmlHeader{
			CreationDate: isoUTC(r.CreationDate),
			Originator:   originator,
		},
		Body: xmlBody{
			Metadata: xmlMetadata{
				EventID:              r.EventID,
				TCA:                  isoUTC(r.TCA),
				MissDistanceKM:       formatPosition(r.MissDistanceKM),
				RelSpeedKMS:          formatVelocity(r.RelSpeedKMS),
				CollisionProbability: formatPc(r.Pc),
				RiskLevel:            r.RiskLevel,
			},
			Objects: []xmlObject{
				toXMLObject("OBJECT1", r.Primary),
				toXMLObject("OBJECT2", r.Secondary),
			},
		},
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return body, nil
}

func toXMLObject(id string, sv StateVector) xmlObject {
	return xmlObject{
		ID:       id,
		ObjectID: sv.ObjectID,
		Source:   sv.Source,
		StateVector: xmlStateVector{
			X:  formatPosition(sv.Position[0]),
			Y:  formatPosition(sv.Position[1]),
			Z:  formatPosition(sv.Position[2]),
			VX: formatVelocity(sv.Velocity[0]),
			VY: formatVelocity(sv.Velocity[1]),
			VZ: formatVelocity(sv.Velocity[2]),
		},
	}
}

// isoUTC formats t as ISO-8601 UTC, e.g. "2026-07-31T12:00:00Z".
func isoUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// formatPosition formats a position value to fixed 6 decimals, per spec.md
// §4.8.
func formatPosition(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// formatVelocity formats a velocity value to fixed 9 decimals, per spec.md
// §4.8.
func formatVelocity(v float64) string {
	return strconv.FormatFloat(v, 'f', 9, 64)
}

// formatPc formats Pc in scientific notation with 3 significant digits
// (one leading digit, two decimal places), per spec.md §4.8.
func formatPc(v float64) string {
	return strconv.FormatFloat(v, 'e', 2, 64)
}
