package flow

import (
	"fmt"
	"strings"

	"github.com/tlxsante/assistant/internal/domain"
)

// text is one reply in the three supported languages. French is the
// fallback for anything unresolved.
type text struct {
	fr, en, ar string
}

func (t text) in(lang domain.Language) string {
	switch lang {
	case domain.LangEnglish:
		return t.en
	case domain.LangArabic:
		return t.ar
	default:
		return t.fr
	}
}

var fieldLabels = map[domain.FieldName]text{
	domain.FieldFullName: {
		fr: "nom et prénom", en: "full name", ar: "الاسم واللقب",
	},
	domain.FieldStartDate: {
		fr: "date de début (jj/mm/aaaa)", en: "start date (dd/mm/yyyy)", ar: "تاريخ البدء (يوم/شهر/سنة)",
	},
	domain.FieldEndDate: {
		fr: "date de fin (jj/mm/aaaa)", en: "end date (dd/mm/yyyy)", ar: "تاريخ الانتهاء (يوم/شهر/سنة)",
	},
	domain.FieldPostalCode: {
		fr: "code postal", en: "postal code", ar: "الرمز البريدي",
	},
	domain.FieldOrderReference: {
		fr: "référence de commande", en: "order reference", ar: "رقم الطلب",
	},
	domain.FieldReturnChoice: {
		fr: "votre choix (échange ou remboursement)", en: "your choice (exchange or refund)", ar: "اختيارك (استبدال أو استرداد)",
	},
}

func labelList(lang domain.Language, fields []domain.FieldName) string {
	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		labels = append(labels, fieldLabels[f].in(lang))
	}
	return strings.Join(labels, ", ")
}

var msgAskDetails = text{
	fr: "Parfait ! Merci de m'envoyer en une seule réponse : votre nom et prénom, la date de début et la date de fin de location (jj/mm/aaaa), votre code postal, ainsi que 2 fichiers : l'ordonnance et la carte de mutuelle (pdf, jpeg, png ou webp, 6 Mo max).",
	en: "Great! Please send me in a single reply: your full name, the rental start and end dates (dd/mm/yyyy), your postal code, plus 2 files: the prescription and the insurance card (pdf, jpeg, png or webp, 6 MB max).",
	ar: "ممتاز! يرجى إرسال ما يلي في رسالة واحدة: الاسم واللقب، تاريخ بدء وانتهاء الإيجار (يوم/شهر/سنة)، الرمز البريدي، بالإضافة إلى ملفين: الوصفة الطبية وبطاقة التأمين (pdf أو jpeg أو png أو webp، بحد أقصى 6 ميغابايت).",
}

var msgMissingFields = text{
	fr: "Merci ! Il me manque encore : %s.",
	en: "Thanks! I still need: %s.",
	ar: "شكراً! ما زلت بحاجة إلى: %s.",
}

var msgBadDate = text{
	fr: "La date « %s » ne semble pas valide. Merci de la renvoyer au format jj/mm/aaaa.",
	en: "The date \"%s\" does not look valid. Please resend it as dd/mm/yyyy.",
	ar: "التاريخ «%s» لا يبدو صحيحاً. يرجى إرساله من جديد بصيغة يوم/شهر/سنة.",
}

var msgDateOrder = text{
	fr: "La date de fin doit être après la date de début. Merci de renvoyer les deux dates (jj/mm/aaaa).",
	en: "The end date must come after the start date. Please resend both dates (dd/mm/yyyy).",
	ar: "يجب أن يكون تاريخ الانتهاء بعد تاريخ البدء. يرجى إرسال التاريخين من جديد (يوم/شهر/سنة).",
}

var msgBadPostal = text{
	fr: "Le code postal doit comporter 4 ou 5 chiffres. Merci de le renvoyer.",
	en: "The postal code must be 4 or 5 digits. Please resend it.",
	ar: "يجب أن يتكون الرمز البريدي من 4 أو 5 أرقام. يرجى إرساله من جديد.",
}

var msgBadName = text{
	fr: "Je n'ai pas bien saisi votre nom et prénom. Merci de les renvoyer.",
	en: "I could not make out your full name. Please resend it.",
	ar: "لم أتمكن من قراءة الاسم واللقب. يرجى إرسالهما من جديد.",
}

var msgConfirmSummary = text{
	fr: "Merci de confirmer votre demande : %s, du %s au %s, code postal %s. Répondez « oui » pour confirmer, « non » pour annuler, ou indiquez le champ à modifier (par exemple « code postal : 75011 »).",
	en: "Please confirm your request: %s, from %s to %s, postal code %s. Reply \"yes\" to confirm, \"no\" to cancel, or name the field to change (for example \"postal code: 75011\").",
	ar: "يرجى تأكيد طلبك: %s، من %s إلى %s، الرمز البريدي %s. أجب بـ«نعم» للتأكيد، أو «لا» للإلغاء، أو حدد الحقل المراد تعديله (مثلاً «الرمز البريدي: 75011»).",
}

var msgNeedAttachments = text{
	fr: "Avant de valider, il me faut encore %d fichier(s) : l'ordonnance et la carte de mutuelle (pdf, jpeg, png ou webp, 6 Mo max).",
	en: "Before I can submit, I still need %d file(s): the prescription and the insurance card (pdf, jpeg, png or webp, 6 MB max).",
	ar: "قبل الإرسال، ما زلت بحاجة إلى %d ملف(ات): الوصفة الطبية وبطاقة التأمين (pdf أو jpeg أو png أو webp، بحد أقصى 6 ميغابايت).",
}

var msgSubmitted = text{
	fr: "Parfait, votre demande est bien enregistrée ! Notre équipe la traite et revient vers vous très vite. Merci de votre confiance 💙",
	en: "Perfect, your request has been recorded! Our team is on it and will get back to you very soon. Thank you for your trust 💙",
	ar: "ممتاز، تم تسجيل طلبك! فريقنا يعالجه وسيعود إليك قريباً جداً. شكراً لثقتك 💙",
}

var msgCancelled = text{
	fr: "D'accord, j'annule la demande. N'hésitez pas si vous changez d'avis !",
	en: "Alright, I've cancelled the request. Feel free to reach out if you change your mind!",
	ar: "حسناً، ألغيت الطلب. لا تتردد في التواصل إذا غيّرت رأيك!",
}

var msgResetDone = text{
	fr: "C'est noté, on repart de zéro. Que puis-je faire pour vous ?",
	en: "Got it, starting over. What can I do for you?",
	ar: "تم، نبدأ من جديد. كيف يمكنني مساعدتك؟",
}

var msgUnknownEditLabel = text{
	fr: "Je ne reconnais pas « %s ». Champs modifiables : nom, date début, date fin, code postal.",
	en: "I don't recognize \"%s\". Editable fields: name, start date, end date, postal code.",
	ar: "لا أعرف الحقل «%s». الحقول القابلة للتعديل: الاسم، تاريخ البدء، تاريخ الانتهاء، الرمز البريدي.",
}

var msgAskReturnReason = text{
	fr: "Bien sûr. Pour le retour, pouvez-vous préciser : le tire-lait a-t-il un problème, ou avez-vous simplement fini de l'utiliser ?",
	en: "Of course. About the return: is there a problem with the breast pump, or are you simply done using it?",
	ar: "بالتأكيد. بخصوص الإرجاع: هل توجد مشكلة في مضخة الحليب، أم أنك انتهيت من استخدامها فقط؟",
}

var msgReturnEndOfUse = text{
	fr: "Merci d'avoir utilisé nos services ! Pour le retour : remettez le tire-lait dans son carton, collez l'étiquette Chronopost fournie, puis déposez le colis dans un point relais Chronopost. Bonne journée !",
	en: "Thank you for using our services! For the return: put the breast pump back in its box, stick on the Chronopost label provided, then drop the parcel at a Chronopost pickup point. Have a great day!",
	ar: "شكراً لاستخدامك خدماتنا! للإرجاع: ضع مضخة الحليب في علبتها، ألصق ملصق Chronopost المرفق، ثم سلّم الطرد في نقطة استلام Chronopost. يوماً سعيداً!",
}

var msgReturnIssueMissing = text{
	fr: "Je suis désolée pour ce souci. Pour traiter le retour, il me faut : %s.",
	en: "Sorry about that issue. To process the return, I need: %s.",
	ar: "آسفة على هذه المشكلة. لمعالجة الإرجاع، أحتاج إلى: %s.",
}

var returnPhotoLabel = text{
	fr: "une photo de l'appareil", en: "a photo of the device", ar: "صورة للجهاز",
}

var msgReturnSubmitted = text{
	fr: "Merci ! Votre demande de retour est enregistrée, notre équipe revient vers vous rapidement avec la suite.",
	en: "Thanks! Your return request is recorded; our team will get back to you shortly with next steps.",
	ar: "شكراً! تم تسجيل طلب الإرجاع، وسيعود إليك فريقنا قريباً بالخطوات التالية.",
}

var msgFilesReceived = text{
	fr: "Merci, fichier(s) bien reçu(s) !",
	en: "Thanks, file(s) received!",
	ar: "شكراً، تم استلام الملف(ات)!",
}

var msgNoAnswer = text{
	fr: "Je suis désolée, je n'ai pas la réponse à cette question. Notre équipe reste disponible pour vous aider !",
	en: "I'm sorry, I don't have the answer to that question. Our team remains available to help!",
	ar: "آسفة، ليس لدي إجابة على هذا السؤال. فريقنا يبقى متاحاً لمساعدتك!",
}

var attachmentRejectedSize = text{
	fr: "Le fichier « %s » dépasse 6 Mo, il n'a pas été pris en compte. Merci d'envoyer une version plus légère.",
	en: "The file \"%s\" exceeds 6 MB and was not saved. Please send a smaller version.",
	ar: "الملف «%s» يتجاوز 6 ميغابايت ولم يتم حفظه. يرجى إرسال نسخة أصغر.",
}

var attachmentRejectedType = text{
	fr: "Le format du fichier « %s » n'est pas accepté (pdf, jpeg, png ou webp uniquement).",
	en: "The file \"%s\" has an unsupported format (pdf, jpeg, png or webp only).",
	ar: "صيغة الملف «%s» غير مقبولة (pdf أو jpeg أو png أو webp فقط).",
}

func attachmentRejectMessage(lang domain.Language, filename string, reason RejectReason) string {
	t := attachmentRejectedType
	if reason == RejectTooLarge {
		t = attachmentRejectedSize
	}
	return fmt.Sprintf(t.in(lang), filename)
}
