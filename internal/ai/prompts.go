package ai

import "strings"

// Промпт для описания картинок — дословно из продакшен-ассистента,
// ответы клиентам идут на испанском.
const DescribeImagePrompt = `Describe detalladamente el contenido de esta imagen.`

// ClassifyPrompt — системный промпт классификатора диалога.
// Модель обязана вернуть РОВНО одну категорию из списка, без пояснений.
func ClassifyPrompt(categories []string) string {
	return `Ты классификатор входящих сообщений интернет-магазина.

Тебе приходит текст клиента. Определи, о чём он, и верни РОВНО одну
категорию из списка ниже. Никакого текста вне категории.

Категории:
` + strings.Join(categories, "\n")
}
