// Package report renders the store as the semicolon-delimited acquisition
// spreadsheet used by the library.
package report

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/bibcat/internal/reference"
)

// Column headers, in order. The texts follow the library's acquisition
// template verbatim, spelling included, so reports paste into it directly.
const (
	ColFaculty         = "Facultad"
	ColCareer          = "Carrera"
	ColSubject         = "Asignatura"
	ColPlan            = "Plan (año)"
	ColSemester        = "Semestre"
	ColAuthor          = "Autor (Apellido, Nombre)"
	ColTitle           = "Título del libro/revistas (Información completa del título)"
	ColChapter         = "Capitulo o artículo si se amerita la información"
	ColEdition         = "Edición"
	ColPlace           = "Lugar de Públicación"
	ColPublisher       = "Editorial / Si es articulo de revista, Volumen, No"
	ColYear            = "Año de Publicación"
	ColLanguage        = "Idioma"
	ColKind            = "Tipo Bibliografía (Básica / Complementaria)"
	ColFormat          = "Tipo de Formato"
	ColPrinted         = "Total de ejemplares en catalogo impresos"
	ColDigital         = "Total de ejemplares en catalogo digitales"
	ColCareerTitle     = "Título asociado a carrera"
	ColSubjectTitle    = "Título asociado a asignatura"
	ColBasic           = "Basica"
	ColComplementary   = "Complementaria"
	ColCollection      = "Colección"
	ColOrderNumber     = "Número de pédido"
	ColPlatform        = "Plataforma de bibliografía"
	ColResourceSource  = "Fuente del recurso"
	ColLink            = "link"
	ColInformationOrig = "Procedencia de información"
	ColNotes           = "Notas"
	ColRequested       = "Títulos Solicitados"
	ColInLibrary       = "Títulos en Biblioteca"
)

// Columns is the report header.
var Columns = []string{
	ColFaculty, ColCareer, ColSubject, ColPlan, ColSemester,
	ColAuthor, ColTitle, ColChapter, ColEdition, ColPlace,
	ColPublisher, ColYear, ColLanguage, ColKind, ColFormat,
	ColPrinted, ColDigital, ColCareerTitle, ColSubjectTitle, ColBasic,
	ColComplementary, ColCollection, ColOrderNumber, ColPlatform, ColResourceSource,
	ColLink, ColInformationOrig, ColNotes, ColRequested, ColInLibrary,
}

var copiesPattern = regexp.MustCompile(`(?i)(\d+)\s+copias?`)

// CopyCount extracts the physical copy count from an availability string
// such as "(16 copias, 16 disponible, 0 solicitudes)". Anything else is 0.
func CopyCount(physical string) int {
	m := copiesPattern.FindStringSubmatch(physical)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// OnlineFlag is 1 only when the string is exactly the online phrase.
func OnlineFlag(online string) int {
	if strings.TrimSpace(online) == reference.OnlinePhrase {
		return 1
	}
	return 0
}

// InLibrary is 1 when the acquisition has printed or digital availability.
func InLibrary(a *reference.Acquisition) int {
	if a != nil && (a.AvailablePrinted || a.AvailableDigital) {
		return 1
	}
	return 0
}
