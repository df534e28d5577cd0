package tray

// SVGContent is the tray icon: a dashed selection around a text glyph.
const SVGContent = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <rect x="1.5" y="2.5" width="13" height="11" fill="none" stroke="#d42a2a" stroke-width="1.2" stroke-dasharray="2,1"/>
  <path d="M5 5h6M8 5v6.5" stroke="#222222" stroke-width="1.6" stroke-linecap="round"/>
  <circle cx="13" cy="13" r="1.2" fill="#d42a2a"/>
</svg>`
