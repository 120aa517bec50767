// Пакет openapi — встроенный OpenAPI контракт Portal Module.
// Контракт используется middleware валидации входящих запросов.
package openapi

import _ "embed"

// Spec — содержимое openapi.yaml.
//
//go:embed openapi.yaml
var Spec []byte
