// Package normalisers turns raw record bytes into plain text. Each
// normaliser handles one family of MIME types; the Registry resolves the
// MIME type of a document from its content type, filename and leading bytes
// and dispatches to the highest priority match.
//
// Subpackages:
//   - pdf: poppler based page extraction with an OCR fallback
//   - docx: Word letters
//   - html: portal and EHR exports
//   - plaintext: UTF-8 text, the fallback for everything else
//   - ocr: tesseract image recognition used by pdf
package normalisers
