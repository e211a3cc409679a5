package display

import (
	"fmt"

	nmea "github.com/adrianmo/go-nmea"
)

// Tracker sentences, sent with the "VR" talker ID:
//
//	$VRHMD,qx,qy,qz,qw,px,py,pz*hh     pose; empty fields mean "not reported"
//	$VRSTG,m0,...,m15,sizeX,sizeZ*hh   stage, column-major sitting-to-standing
//	$VRRST*hh                           reset request (host to tracker)
const (
	TypeHMD = "HMD"
	TypeSTG = "STG"

	resetSentence = "VRRST"
)

// HMD is a pose sentence.
type HMD struct {
	nmea.BaseSentence
	Orientation *[4]float64
	Position    *[3]float64
}

// STG is a stage parameters sentence.
type STG struct {
	nmea.BaseSentence
	Stage StageParameters
}

func init() {
	if err := nmea.RegisterParser(TypeHMD, parseHMD); err != nil {
		panic(err)
	}
	if err := nmea.RegisterParser(TypeSTG, parseSTG); err != nil {
		panic(err)
	}
}

func parseHMD(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) != 7 {
		return nil, fmt.Errorf("nmea: %s expects 7 fields, got %d", s.Prefix(), len(s.Fields))
	}
	p := nmea.NewParser(s)
	m := HMD{BaseSentence: s}

	if !allEmpty(s.Fields[0:4]) {
		var q [4]float64
		for i := range q {
			q[i] = p.Float64(i, "orientation")
		}
		m.Orientation = &q
	}
	if !allEmpty(s.Fields[4:7]) {
		var v [3]float64
		for i := range v {
			v[i] = p.Float64(4+i, "position")
		}
		m.Position = &v
	}
	return m, p.Err()
}

func parseSTG(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) != 18 {
		return nil, fmt.Errorf("nmea: %s expects 18 fields, got %d", s.Prefix(), len(s.Fields))
	}
	p := nmea.NewParser(s)
	m := STG{BaseSentence: s}
	for i := range m.Stage.SittingToStanding {
		m.Stage.SittingToStanding[i] = p.Float64(i, "sitting to standing")
	}
	m.Stage.SizeX = p.Float64(16, "size x")
	m.Stage.SizeZ = p.Float64(17, "size z")
	return m, p.Err()
}

func allEmpty(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}

// encodeSentence frames body as a checksummed sentence line.
func encodeSentence(body string) string {
	return fmt.Sprintf("$%s*%s\r\n", body, nmea.Checksum(body))
}
