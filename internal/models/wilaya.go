package models

// WilayaGhardaia is the wilaya whose trips are located at ksar granularity:
// an origin or destination in wilaya 47 must name its ksar.
const WilayaGhardaia = 47

// wilayaNames maps Algerian wilaya codes to names, covering the 58-wilaya
// division in force since 2019.
var wilayaNames = map[int]string{
	1: "Adrar", 2: "Chlef", 3: "Laghouat", 4: "Oum El Bouaghi", 5: "Batna",
	6: "Béjaïa", 7: "Biskra", 8: "Béchar", 9: "Blida", 10: "Bouira",
	11: "Tamanrasset", 12: "Tébessa", 13: "Tlemcen", 14: "Tiaret",
	15: "Tizi Ouzou", 16: "Alger", 17: "Djelfa", 18: "Jijel", 19: "Sétif",
	20: "Saïda", 21: "Skikda", 22: "Sidi Bel Abbès", 23: "Annaba",
	24: "Guelma", 25: "Constantine", 26: "Médéa", 27: "Mostaganem",
	28: "M'Sila", 29: "Mascara", 30: "Ouargla", 31: "Oran",
	32: "El Bayadh", 33: "Illizi", 34: "Bordj Bou Arréridj", 35: "Boumerdès",
	36: "El Tarf", 37: "Tindouf", 38: "Tissemsilt", 39: "El Oued",
	40: "Khenchela", 41: "Souk Ahras", 42: "Tipaza", 43: "Mila",
	44: "Aïn Defla", 45: "Naâma", 46: "Aïn Témouchent", 47: "Ghardaïa",
	48: "Relizane", 49: "Timimoun", 50: "Bordj Badji Mokhtar",
	51: "Ouled Djellal", 52: "Béni Abbès", 53: "In Salah", 54: "In Guezzam",
	55: "Touggourt", 56: "Djanet", 57: "El M'Ghair", 58: "El Menia",
}

// ghardaiaKsour lists the selectable sub-localities of wilaya 47.
var ghardaiaKsour = []string{
	"Ghardaïa", "Melika", "Beni Isguen", "Bounoura", "El Atteuf",
	"Daya Ben Dahoua", "Berriane", "Guerrara", "Metlili", "Zelfana",
	"Sebseb", "Mansoura", "Hassi El Gara", "Hassi Fehal",
}

func IsValidWilaya(code int) bool {
	_, ok := wilayaNames[code]
	return ok
}

func WilayaName(code int) string {
	return wilayaNames[code]
}

func IsValidKsar(name string) bool {
	for _, k := range ghardaiaKsour {
		if k == name {
			return true
		}
	}
	return false
}

func GhardaiaKsour() []string {
	out := make([]string, len(ghardaiaKsour))
	copy(out, ghardaiaKsour)
	return out
}
