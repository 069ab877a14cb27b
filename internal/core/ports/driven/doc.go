// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TextExtractor: Turns raw bytes into normalised text
//   - NormaliserRegistry: Selects a Normaliser by MIME type (PDF, plain text)
//   - Chunker: Splits text into overlapping word-windows
//   - EmbeddingService: Maps text to fixed-dimension vectors
//   - VectorStore: Collection lifecycle, upsert and filtered search
//   - ConfigStore: Application configuration
//
// # Supporting Interfaces
//
//   - CommandRunner: Executes external binaries (poppler, tesseract)
//   - OCREngine: Recognises text in page images
//   - Fetcher: Downloads record bytes referenced by fileUrl
//   - Connector: Streams files from an inbox directory
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or extractor package
package driven
