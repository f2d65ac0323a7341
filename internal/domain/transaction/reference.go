package transaction

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

var referencePrefixes = map[ProductType]string{
	ProductAirtime:          "AIR",
	ProductData:             "DAT",
	ProductElectricity:      "ELE",
	ProductTV:               "TV",
	ProductWalletFunding:    "FND",
	ProductRefund:           "REF",
	ProductPointsConversion: "PTS",
}

// NewReference returns a globally unique reference such as AIR-1760799845123-9F2C41AB.
func NewReference(product ProductType) string {
	prefix, ok := referencePrefixes[product]
	if !ok {
		prefix = "TXN"
	}

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("reference entropy: %v", err))
	}

	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), strings.ToUpper(hex.EncodeToString(buf)))
}

// RefundReference is derived from the original reference so a second refund collides.
func RefundReference(original string) string {
	return "REF-" + original
}
