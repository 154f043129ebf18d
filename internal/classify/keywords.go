package classify

// KeywordTableVersion tags the fallback keyword table so degraded runs are
// reproducible across releases. Bump when the table changes.
const KeywordTableVersion = "v1"

// DefaultTargetCategory is the category the brand currently operates in.
const DefaultTargetCategory = "beauty/skincare"

// DefaultKeywords is the v1 fallback table for the beauty/skincare category.
// Entries are matched case-insensitively as substrings of the description, so
// they cover hashtags and CJK/Thai text without tokenization.
var DefaultKeywords = []string{
	"skincare", "makeup", "beauty", "cosmetic",
	"serum", "sunscreen", "moisturizer", "cleanser", "toner",
	"lipstick", "mascara", "foundation", "cushion", "eyeshadow",
	"护肤", "美妆", "彩妆", "面膜", "口红", "精华", "防晒", "粉底",
	"สกินแคร์", "ครีม", "เซรั่ม", "กันแดด", "ลิปสติก",
}
