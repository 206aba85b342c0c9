package nav

// User-facing wording lives here and only here - parsing and pagination
// stay locale-free.
const (
	msgHome            = "👋 Вітаю! Оберіть опцію нижче:"
	msgChooseBook      = "📖 Оберіть книгу для читання:"
	msgNoContent       = "У цьому розділі немає тексту."
	msgNoBook          = "Цей розділ не належить до жодної книги."
	msgNoReferences    = "📚 Для цього розділу немає посилань."
	msgReferencesHdr   = "📚 **Посилання для розділу:**"
	msgLoadFailed      = "⚠️ Не вдалося завантажити розділ. Спробуйте ще раз."
	msgChapterNotFound = "Розділ не знайдено."
	msgVerseNotFound   = "Вірш %d не знайдено в цій главі."
	msgUnknownBookName = "Невідома книга"

	lblStartReading  = "📖 Почати читання"
	lblContents      = "📋 Зміст книги"
	lblMainMenu      = "🏠 Головне меню"
	lblBackToToc     = "🔙 Назад до змісту"
	lblBackToChapter = "⬅️ Назад до розділу"
	lblPrevChapter   = "⬅️ Попередній розділ"
	lblNextChapter   = "➡️ Наступний розділ"
	lblPrevVerses    = "⬅️ Попередні 3 вірші"
	lblNextVerses    = "➡️ Наступні 3 вірші"
	lblReadFull      = "📖 Читати повністю"
	lblFullChapter   = "📖 Повна глава"
	lblReferences    = "📚 Посилання"
	lblCommentary    = "📖 Коментарі Вільяма Барклі"
	lblVersePrefix   = "Вірш"
)
