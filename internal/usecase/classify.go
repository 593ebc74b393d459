package usecase

import (
	"encoding/json"
	"math"
	"strconv"
)

// UnknownActivity is the attack type for ports outside the classification table.
const UnknownActivity = "unknown_activity"

var attackTypesByPort = map[int64]string{
	21:   "ftp_login_attempt",
	22:   "ssh_login_attempt",
	23:   "telnet_login_attempt",
	80:   "http_probe",
	443:  "https_probe",
	445:  "smb_probe",
	3306: "mysql_login_attempt",
	3389: "rdp_connection_attempt",
	9418: "git_probe",
}

// Classify maps a destination port to an attack type. Only integral numeric
// values are looked up; anything else is UnknownActivity.
func Classify(dstPort any) string {
	port, ok := integralPort(dstPort)
	if !ok {
		return UnknownActivity
	}
	if attackType, found := attackTypesByPort[port]; found {
		return attackType
	}
	return UnknownActivity
}

func integralPort(v any) (int64, bool) {
	switch p := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(p), 10, 64); err == nil {
			return i, true
		}
		f, err := p.Float64()
		if err != nil {
			return 0, false
		}
		return floatPort(f)
	case int:
		return int64(p), true
	case int32:
		return int64(p), true
	case int64:
		return p, true
	case uint16:
		return int64(p), true
	case float64:
		return floatPort(p)
	default:
		return 0, false
	}
}

func floatPort(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
