package core

import "sort"

// JobTypes is the closed list offered when creating a job. Stored values
// outside it are kept as-is.
var JobTypes = []string{
	"Aplikasyon", "Yapı Aplikasyonu", "Ecri-misil", "Kübaj", "Tus",
	"Kat İrtifağı", "Kat Mülkiyeti", "Cins Değişikliği", "İntikal",
	"İfraz", "Yola Terk", "İhtas", "Tevhit", "Oturma Raporu Takip",
	"Numarataj", "Zemin Tespit", "İmar Barışı (Kat Mülkiyeti)",
	"Hatalı Bağımsız Düzeltme", "41 uygulaması", "Plankote",
}

// MonthNames maps Turkish month names to their number, in calendar order.
var MonthNames = []string{
	"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}

// Neighborhoods is the district → neighbourhood lookup for İzmir.
var Neighborhoods = map[string][]string{
	"Karaburun":  {"Merkez", "Yayla", "Eğlenhoca", "İnecik", "Kösedere", "Karareis", "Saip", "Sarpıncık", "Hasseki", "İhsaniye", "Küçükbahçe", "Yeniköy", "Bozköy"},
	"Çeşme":      {"Alaçatı", "Ilıca", "Ovacık", "Şifne", "Reisdere", "Üniversite", "Musalla"},
	"Urla":       {"Merkez", "Gülbahçe", "Zeytinalanı", "Kuşçular", "Bademler", "Balıklıova"},
	"Güzelbahçe": {"Yaka", "Siteler", "Çamlık", "Yelki"},
	"Narlıdere":  {"Çatalkaya", "Limanreis", "Yenikale", "Altıevler"},
	"Balçova":    {"Merkez", "Korutürk", "Onur", "İnciraltı"},
	"Konak":      {"Alsancak", "Güzelyalı", "Göztepe", "Karataş", "Kemeraltı", "Basmane"},
	"Karabağlar": {"Bahçelievler", "Gülyaka", "Cennetçeşme", "Esenyalı"},
	"Buca":       {"Kuruçeşme", "Buttepe", "Gediz", "Yıldız", "Hürriyet"},
	"Bornova":    {"Kazımdirik", "Erzene", "Evka 3", "Işıkkent", "Çamdibi"},
	"Bayraklı":   {"Adalet", "Mansuroğlu", "Anadolu", "Soğukkuyu"},
	"Karşıyaka":  {"Bostanlı", "Mavişehir", "Alaybey", "Bahariye"},
	"Çiğli":      {"Sasalı", "Balatçık", "Ataşehir", "Evka 5"},
	"Menemen":    {"Merkez", "Asarlık", "Türkelli", "Seyrek"},
	"Aliağa":     {"Yeni Mahalle", "Kazım Dirik", "Hürriyet"},
	"Foça":       {"Yeni Foça", "Eski Foça", "Gökçealan"},
	"Dikili":     {"Salihler", "Bademli", "Kabakum"},
	"Bergama":    {"Atmaca", "Bozköy", "Zağnos"},
	"Kınık":      {"Merkez", "Poyracık"},
	"Tire":       {"Derekahve", "İpekçiler", "Yeni Mahalle"},
	"Ödemiş":     {"Mescitli", "Karadoğan", "Hürriyet"},
	"Kiraz":      {"Irmak", "Haliller", "Cevizli"},
	"Beydağ":     {"Atatürk", "Menderes"},
	"Torbalı":    {"Tepeköy", "Yazıbaşı", "Muratbey"},
	"Selçuk":     {"İsa Bey", "14 Mayıs", "Zafer"},
	"Menderes":   {"Gümüldür", "Özdere", "Tekeli"},
	"Kemalpaşa":  {"Ulucak", "Bağyurdu", "Yukarıkızılca"},
}

// Districts returns the district names sorted alphabetically.
func Districts() []string {
	out := make([]string, 0, len(Neighborhoods))
	for d := range Neighborhoods {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
