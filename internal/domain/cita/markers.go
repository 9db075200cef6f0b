package cita

// Text markers matched verbatim against the rendered page body. The portal is
// matched byte for byte; do not normalize these.
const (
	MarkerPortalTitle     = "Proceso automático para la solicitud de cita previa"
	MarkerOffices         = "Seleccione la oficina donde solicitar la cita"
	MarkerNoAvailability  = "En este momento no hay citas disponibles"
	MarkerCountdown       = "DISPONE DE 5 MINUTOS"
	MarkerGrid            = "Seleccione una de las siguientes citas disponibles"
	MarkerConfirmRequired = "Debe confirmar los datos de la cita asignada"
	MarkerConfirmed       = "CITA CONFIRMADA Y GRABADA"
	MarkerIncorrectCode   = "Lo sentimos, el código introducido no es correcto"
)

// Element selectors of the portal pages, in page order.
const (
	SelProvince = "#prov_selecc"

	SelEnter = "#btnEntrar"

	SelDocPassport  = "#rdbTipoDocPas"
	SelDocNIE       = "#rdbTipoDocNie"
	SelDocDNI       = "#rdbTipoDocDni"
	SelDocValue     = "#txtIdCitado"
	SelName         = "#txtDesCitado"
	SelYearOfBirth  = "#txtAnnoCitado"
	SelCountry      = "#txtPaisNac"
	SelSendPersonal = "#btnEnviar"
	SelRequest      = "#btnConsultar"

	SelOffice     = "#idSede"
	SelOfficeNext = "#btnSiguiente"

	SelPhone  = "#txtTelefonoCitado"
	SelEmail1 = "#emailUNO"
	SelEmail2 = "#emailDOS"
	SelReason = "#txtObservaciones"

	SelSlotLabels = "[id^=lCita_]"
	SelSlotRadios = "input[type='radio'][name='rdbCita']"
	SelSlotGrid   = "#CitaMAP_HORAS"

	SelScoreSiteKey  = "#reCAPTCHA_site_key"
	SelScoreAction   = "#action"
	SelScoreResponse = "g-recaptcha-response"
	SelImageCaptcha  = "img.img-thumbnail"
	SelImageAnswer   = "#captcha"

	SelSMSCode     = "#txtCodigoVerificacion"
	SelConsentAll  = "#chkTotal"
	SelConsentMail = "#enviarCorreo"
	SelConfirm     = "#btnConfirmar"
	SelReceipt     = "#justificanteFinal"
)

// Portal-side scripts triggering form submissions.
const (
	ScriptRequestOffices = "enviar('solicitud');"
	ScriptSendContact    = "enviar();"
	ScriptPickCountdown  = "envia();"
)

// DocTypeRadio returns the radio selector for t.
func DocTypeRadio(t DocType) string {
	switch t {
	case DocPassport:
		return SelDocPassport
	case DocNIE:
		return SelDocNIE
	case DocDNI:
		return SelDocDNI
	}
	return ""
}
