package driven

// NormaliserRegistry is a TextExtractor that routes each record to the
// first registered normaliser claiming its MIME type. The type comes from
// the declared content type, then the file extension, then the leading
// bytes.
type NormaliserRegistry interface {
	TextExtractor

	Register(normaliser Normaliser)

	// SupportedMIMETypes lists the formats that can be indexed.
	SupportedMIMETypes() []string
}
