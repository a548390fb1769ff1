package rtorrent

import (
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

// azureusClients maps the two-letter code of Azureus-style peer ids
// ("-XX1234-...") to a display name. Codes follow the convention most
// clients publish; unlisted codes fall through to the version fallback.
var azureusClients = map[string]string{
	"AG": "Ares",
	"A~": "Ares",
	"AR": "Arctic",
	"AT": "Artemis",
	"AX": "BitPump",
	"AZ": "Azureus",
	"BB": "BitBuddy",
	"BC": "BitComet",
	"BE": "Baretorrent",
	"BF": "Bitflu",
	"BG": "BTG",
	"BL": "BitBlinder",
	"BP": "BitTorrent Pro",
	"BR": "BitRocket",
	"BS": "BTSlave",
	"BT": "BitTorrent",
	"BW": "BitWombat",
	"BX": "Bittorrent X",
	"CD": "Enhanced CTorrent",
	"CT": "CTorrent",
	"DE": "Deluge",
	"DP": "Propagate",
	"EB": "EBit",
	"ES": "Electric Sheep",
	"FC": "FileCroc",
	"FD": "Free Download Manager",
	"FT": "FoxTorrent",
	"FX": "Freebox",
	"GS": "GSTorrent",
	"HL": "Halite",
	"HM": "hMule",
	"HN": "Hydranode",
	"KG": "KGet",
	"KT": "KTorrent",
	"LC": "LeechCraft",
	"LH": "LH-ABC",
	"LP": "Lphant",
	"LT": "libtorrent",
	"LW": "LimeWire",
	"MK": "Meerkat",
	"MO": "MonoTorrent",
	"MP": "MooPolice",
	"MR": "Miro",
	"MT": "Moonlight",
	"NB": "Net::BitTorrent",
	"NX": "Net Transport",
	"OS": "OneSwarm",
	"OT": "OmegaTorrent",
	"PB": "Protocol::BitTorrent",
	"PD": "Pando",
	"PI": "PicoTorrent",
	"PT": "PHPTracker",
	"QD": "QQDownload",
	"QT": "Qt 4 Torrent",
	"RT": "Retriever",
	"RZ": "RezTorrent",
	"SB": "Swiftbit",
	"SD": "Thunder",
	"SM": "SoMud",
	"SP": "BitSpirit",
	"SS": "SwarmScope",
	"ST": "SymTorrent",
	"SZ": "Shareaza",
	"TE": "Terasaur Seed Bank",
	"TL": "Tribler",
	"TN": "TorrentDotNET",
	"TR": "Transmission",
	"TS": "Torrentstorm",
	"TT": "TuoTu",
	"UL": "uLeecher!",
	"UM": "µTorrent for Mac",
	"UT": "µTorrent",
	"VG": "Vagaa",
	"WD": "WebTorrent Desktop",
	"WT": "BitLet",
	"WW": "WebTorrent",
	"WY": "FireTorrent",
	"XL": "Xunlei",
	"XT": "XanTorrent",
	"XX": "Xtorrent",
	"ZT": "ZipTorrent",
	"lt": "libTorrent",
	"qB": "qBittorrent",
	"st": "sharktorrent",
}

// resolveClient turns a raw peer id plus the daemon's client_version hint
// into a display name. The daemon reports p.id hex encoded; binary ids from
// other sources are accepted as-is. The chain never fails: fingerprint
// decode, then the daemon hint if it looks sane, then "Unknown".
func resolveClient(peerID, clientVersion string) string {
	if name := decodePeerID(peerID); name != "" {
		return name
	}
	if plausibleClientVersion(clientVersion) {
		return clientVersion
	}
	return "Unknown"
}

func decodePeerID(id string) string {
	if len(id) == 40 {
		if raw, err := hex.DecodeString(id); err == nil {
			id = string(raw)
		}
	}
	if len(id) < 8 {
		return ""
	}
	if id[0] != '-' || id[7] != '-' {
		return ""
	}
	name, ok := azureusClients[id[1:3]]
	if !ok {
		return ""
	}
	if version := azureusVersion(id[3:7]); version != "" {
		return name + " " + version
	}
	return name
}

// azureusVersion renders the four version characters as dotted digits.
// Clients that pack non-decimal data there get no version suffix.
func azureusVersion(v string) string {
	parts := make([]string, 0, len(v))
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return ""
		}
		parts = append(parts, string(v[i]))
	}
	return strings.Join(parts, ".")
}

// plausibleClientVersion filters out daemons echoing garbage or binary in
// the client_version field: it must start with a letter and carry no control
// characters.
func plausibleClientVersion(s string) bool {
	if s == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	if !unicode.IsLetter(first) {
		return false
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}
