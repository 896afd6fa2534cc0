package handlers

// User-facing messages for the error envelope, keyed by error code then
// locale. English is the fallback for unknown codes and locales.
var messages = map[string]map[string]string{
	"invalid_request": {
		"en": "the generation request is invalid",
		"id": "permintaan pembuatan lagu tidak valid",
	},
	"insufficient_credits": {
		"en": "not enough credits to start a generation",
		"id": "kredit tidak cukup untuk memulai pembuatan lagu",
	},
	"vendor_error": {
		"en": "the music generation service is unavailable, try again later",
		"id": "layanan pembuatan musik sedang tidak tersedia, coba lagi nanti",
	},
	"generation_failed": {
		"en": "the music generation service could not produce a track",
		"id": "layanan pembuatan musik gagal menghasilkan lagu",
	},
	"generation_timeout": {
		"en": "the generation did not finish in time; credits may already have been deducted",
		"id": "pembuatan lagu tidak selesai tepat waktu; kredit mungkin sudah terpotong",
	},
	"history_disabled": {
		"en": "track history is not enabled on this deployment",
		"id": "riwayat lagu tidak diaktifkan pada server ini",
	},
	"not_found": {
		"en": "resource not found",
		"id": "data tidak ditemukan",
	},
	"internal": {
		"en": "internal server error",
		"id": "terjadi kesalahan pada server",
	},
}

func localizedMessage(code, locale string) string {
	byLocale, ok := messages[code]
	if !ok {
		byLocale = messages["internal"]
	}
	if msg, ok := byLocale[locale]; ok {
		return msg
	}
	return byLocale["en"]
}
