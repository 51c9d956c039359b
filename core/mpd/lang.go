package mpd

// languageNames 平台使用的语言代码到展示名
var languageNames = map[string]string{
	"en":  "English",
	"eng": "English",
	"hi":  "Hindi",
	"hin": "Hindi",
	"ta":  "Tamil",
	"tam": "Tamil",
	"te":  "Telugu",
	"tel": "Telugu",
	"kn":  "Kannada",
	"kan": "Kannada",
	"ml":  "Malayalam",
	"mal": "Malayalam",
	"bn":  "Bengali",
	"ben": "Bengali",
	"mr":  "Marathi",
	"mar": "Marathi",
	"gu":  "Gujarati",
	"guj": "Gujarati",
	"pa":  "Punjabi",
	"pan": "Punjabi",
	"or":  "Odia",
	"ori": "Odia",
	"bho": "Bhojpuri",
	"as":  "Assamese",
	"ur":  "Urdu",
	"es":  "Spanish",
	"fr":  "French",
	"de":  "German",
	"ja":  "Japanese",
	"ko":  "Korean",
	"zh":  "Chinese",
}

// LanguageName 返回语言展示名，表中没有时原样返回代码
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
